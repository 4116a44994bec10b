package workflow

import "fmt"

// NotificationPayload 通知内容的和类型：每种通知类型对应一个固定字段集合的结构体，
// 仅在边界处通过 Wire 转换为传输格式。
type NotificationPayload interface {
	Type() NotificationType
	Title() string
	Message() string
	Wire() map[string]any
	sealed()
}

// AssignedNotif 表单分配通知（也用于提交后“处理中”状态）
type AssignedNotif struct {
	FormID    string
	FormTitle string
	InProcess bool // 已提交、等待审核
}

func (AssignedNotif) Type() NotificationType { return NotifFormAssigned }
func (AssignedNotif) sealed()                 {}

func (n AssignedNotif) Title() string {
	if n.InProcess {
		return "表单审核中"
	}
	return "新的表单任务"
}

func (n AssignedNotif) Message() string {
	if n.InProcess {
		return fmt.Sprintf("您提交的「%s」已进入审核流程", n.FormTitle)
	}
	return fmt.Sprintf("您被分配了表单「%s」，请按要求上传文件", n.FormTitle)
}

func (n AssignedNotif) Wire() map[string]any {
	return map[string]any{
		"kind":       string(n.Type()),
		"form_id":    n.FormID,
		"form_title": n.FormTitle,
		"in_process": n.InProcess,
	}
}

// RejectedNotif 表单被驳回通知
type RejectedNotif struct {
	FormID       string
	FormTitle    string
	SubmissionID string
	Reasons      map[string]string // field_id → 驳回原因
	Again        bool              // 重新提交后再次被驳回
}

func (RejectedNotif) Type() NotificationType { return NotifFormRejected }
func (RejectedNotif) sealed()                 {}

func (n RejectedNotif) Title() string {
	if n.Again {
		return "表单再次被驳回"
	}
	return "表单被驳回"
}

func (n RejectedNotif) Message() string {
	if n.Again {
		return fmt.Sprintf("您重新提交的「%s」再次被驳回，请根据意见修改后重新上传", n.FormTitle)
	}
	return fmt.Sprintf("您提交的「%s」被驳回，请根据意见修改后重新上传", n.FormTitle)
}

func (n RejectedNotif) Wire() map[string]any {
	reasons := make(map[string]any, len(n.Reasons))
	for k, v := range n.Reasons {
		reasons[k] = v
	}
	return map[string]any{
		"kind":          string(n.Type()),
		"form_id":       n.FormID,
		"form_title":    n.FormTitle,
		"submission_id": n.SubmissionID,
		"reasons":       reasons,
		"again":         n.Again,
	}
}

// CompletedNotif 表单已通过通知
type CompletedNotif struct {
	FormID       string
	FormTitle    string
	SubmissionID string
	Direct       bool // 管理员直接上传
}

func (CompletedNotif) Type() NotificationType { return NotifFormCompleted }
func (CompletedNotif) sealed()                 {}

func (n CompletedNotif) Title() string { return "表单已完成" }

func (n CompletedNotif) Message() string {
	if n.Direct {
		return fmt.Sprintf("管理员已为您完成「%s」的文件上传", n.FormTitle)
	}
	return fmt.Sprintf("您提交的「%s」已审核通过", n.FormTitle)
}

func (n CompletedNotif) Wire() map[string]any {
	return map[string]any{
		"kind":          string(n.Type()),
		"form_id":       n.FormID,
		"form_title":    n.FormTitle,
		"submission_id": n.SubmissionID,
		"direct":        n.Direct,
	}
}

// ReviewPendingNotif 审核人待办通知，每次提交/重新提交均新建
type ReviewPendingNotif struct {
	FormID        string
	FormTitle     string
	SubmissionID  string
	SubmitterID   string
	SubmitterName string
	Resubmission  bool
}

func (ReviewPendingNotif) Type() NotificationType { return NotifSubmissionPending }
func (ReviewPendingNotif) sealed()                 {}

func (n ReviewPendingNotif) Title() string {
	if n.Resubmission {
		return "有重新提交待审核"
	}
	return "有新的提交待审核"
}

func (n ReviewPendingNotif) Message() string {
	verb := "提交了"
	if n.Resubmission {
		verb = "重新提交了"
	}
	return fmt.Sprintf("%s %s「%s」，请及时审核", n.SubmitterName, verb, n.FormTitle)
}

func (n ReviewPendingNotif) Wire() map[string]any {
	return map[string]any{
		"kind":           string(n.Type()),
		"form_id":        n.FormID,
		"form_title":     n.FormTitle,
		"submission_id":  n.SubmissionID,
		"submitter_id":   n.SubmitterID,
		"submitter_name": n.SubmitterName,
		"resubmission":   n.Resubmission,
	}
}

// [自证通过] internal/workflow/payload.go
