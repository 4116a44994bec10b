package workflow

import (
	"strings"
	"testing"
)

func TestPayload_TypesAndTitles(t *testing.T) {
	tests := []struct {
		name    string
		payload NotificationPayload
		typ     NotificationType
		title   string
	}{
		{"分配", AssignedNotif{FormTitle: "年度材料"}, NotifFormAssigned, "新的表单任务"},
		{"审核中", AssignedNotif{FormTitle: "年度材料", InProcess: true}, NotifFormAssigned, "表单审核中"},
		{"驳回", RejectedNotif{FormTitle: "年度材料"}, NotifFormRejected, "表单被驳回"},
		{"再次驳回", RejectedNotif{FormTitle: "年度材料", Again: true}, NotifFormRejected, "表单再次被驳回"},
		{"完成", CompletedNotif{FormTitle: "年度材料"}, NotifFormCompleted, "表单已完成"},
		{"直接上传完成", CompletedNotif{FormTitle: "年度材料", Direct: true}, NotifFormCompleted, "表单已完成"},
		{"待审核", ReviewPendingNotif{FormTitle: "年度材料", SubmitterName: "张三"}, NotifSubmissionPending, "有新的提交待审核"},
		{"重新提交待审核", ReviewPendingNotif{FormTitle: "年度材料", Resubmission: true}, NotifSubmissionPending, "有重新提交待审核"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.payload.Type() != tt.typ {
				t.Errorf("类型期望 %s，实际 %s", tt.typ, tt.payload.Type())
			}
			if tt.payload.Title() != tt.title {
				t.Errorf("标题期望 %s，实际 %s", tt.title, tt.payload.Title())
			}
			if !strings.Contains(tt.payload.Message(), "年度材料") {
				t.Errorf("消息应包含表单标题，实际 %s", tt.payload.Message())
			}
			if tt.payload.Wire()["kind"] != string(tt.typ) {
				t.Errorf("Wire kind 期望 %s，实际 %v", tt.typ, tt.payload.Wire()["kind"])
			}
		})
	}
}

func TestPayload_WireFields(t *testing.T) {
	rejected := RejectedNotif{
		FormID:       "f1",
		FormTitle:    "年度材料",
		SubmissionID: "s1",
		Reasons:      map[string]string{"field-1": "不清晰"},
		Again:        true,
	}.Wire()

	if rejected["submission_id"] != "s1" || rejected["again"] != true {
		t.Errorf("驳回通知字段不正确: %v", rejected)
	}
	reasons, ok := rejected["reasons"].(map[string]any)
	if !ok || reasons["field-1"] != "不清晰" {
		t.Errorf("驳回原因应透传，实际 %v", rejected["reasons"])
	}

	pending := ReviewPendingNotif{SubmitterID: "u1", SubmitterName: "张三", FormTitle: "年度材料"}
	if pending.Wire()["submitter_id"] != "u1" {
		t.Error("待审核通知应携带提交人 ID")
	}
	if !strings.Contains(pending.Message(), "张三") {
		t.Error("待审核通知消息应包含提交人姓名")
	}
}
