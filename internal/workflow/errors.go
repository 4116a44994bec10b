package workflow

import "errors"

// ── 提交流程领域错误 ──
//
// 以上错误均需透传给调用方，不做静默恢复。

var (
	ErrInvalidTransition   = errors.New("该表单当前不可执行此操作")
	ErrAlreadyCompleted    = errors.New("该提交已完成，不可再执行此操作")
	ErrNotAssigned         = errors.New("无权访问：未被分配该表单")
	ErrDuplicateSubmission = errors.New("该用户在此表单下已存在提交记录")
	ErrMissingField        = errors.New("上传字段不属于该表单")
	ErrStorageFailure      = errors.New("文件存储失败")
)
