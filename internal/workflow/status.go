package workflow

import "strings"

// SubmissionStatus 提交记录状态
type SubmissionStatus string

const (
	StatusNotYetResponded   SubmissionStatus = "not_yet_responded"
	StatusUserResponded     SubmissionStatus = "user_responded"
	StatusRejectionProcess  SubmissionStatus = "rejection_process"
	StatusRejectedResponded SubmissionStatus = "rejected_responded"
	StatusCompleted         SubmissionStatus = "completed"
)

// Valid 判断是否为已知状态
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNotYetResponded, StatusUserResponded, StatusRejectionProcess,
		StatusRejectedResponded, StatusCompleted:
		return true
	}
	return false
}

// ResponseStatus 字段上传记录状态
type ResponseStatus string

const (
	ResponsePending     ResponseStatus = "pending"
	ResponseApproved    ResponseStatus = "approved"
	ResponseRejected    ResponseStatus = "rejected"
	ResponseResubmitted ResponseStatus = "resubmitted"
)

// IsLive pending/approved 视为该字段当前有效的上传
func (s ResponseStatus) IsLive() bool {
	return s == ResponsePending || s == ResponseApproved
}

// ReviewAction 审核动作
type ReviewAction string

const (
	ActionApproved   ReviewAction = "approved"
	ActionRejected   ReviewAction = "rejected"
	ActionReApproved ReviewAction = "re-approved"
	ActionReRejected ReviewAction = "re-rejected"
	ActionEdited     ReviewAction = "edited"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifFormAssigned      NotificationType = "form_assigned"
	NotifFormRejected      NotificationType = "form_rejected"
	NotifFormCompleted     NotificationType = "form_completed"
	NotifSubmissionPending NotificationType = "submission_pending"
)

// IsAssignment 是否为分配人视角的生命周期通知（每个 (user, form) 至多一条）
func (t NotificationType) IsAssignment() bool {
	return t == NotifFormAssigned || t == NotifFormRejected || t == NotifFormCompleted
}

// NotificationStatus 通知已读状态
type NotificationStatus string

const (
	NotifUnread NotificationStatus = "unread"
	NotifRead   NotificationStatus = "read"
)

// DisplayStatus 面向用户展示的合成状态
type DisplayStatus string

const (
	DisplayPending   DisplayStatus = "pending"
	DisplayInProcess DisplayStatus = "in-process"
	DisplayRejected  DisplayStatus = "rejected"
	DisplayCompleted DisplayStatus = "completed"
)

// FormStatus 表单状态
type FormStatus string

const (
	FormActive   FormStatus = "active"
	FormInactive FormStatus = "inactive"
)

// FieldType 表单字段允许的文件类型
type FieldType string

const (
	FieldWord       FieldType = "Word"
	FieldExcel      FieldType = "Excel"
	FieldPowerPoint FieldType = "PowerPoint"
	FieldPDF        FieldType = "PDF"
	FieldJPEG       FieldType = "JPEG"
	FieldPNG        FieldType = "PNG"
)

// fieldMIMEs 各字段类型可接受的 MIME 类型
var fieldMIMEs = map[FieldType][]string{
	FieldWord: {
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
	FieldExcel: {
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	},
	FieldPowerPoint: {
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	},
	FieldPDF:  {"application/pdf"},
	FieldJPEG: {"image/jpeg"},
	FieldPNG:  {"image/png"},
}

// Valid 判断是否为已知字段类型
func (t FieldType) Valid() bool {
	_, ok := fieldMIMEs[t]
	return ok
}

// Accepts 判断 MIME 类型是否满足字段类型要求（忽略参数部分，如 charset）
func (t FieldType) Accepts(mime string) bool {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))
	for _, m := range fieldMIMEs[t] {
		if m == mime {
			return true
		}
	}
	return false
}

// FieldTypes 返回全部字段类型，按固定顺序
func FieldTypes() []FieldType {
	return []FieldType{FieldWord, FieldExcel, FieldPowerPoint, FieldPDF, FieldJPEG, FieldPNG}
}

// [自证通过] internal/workflow/status.go
