package workflow

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		notif NotificationType
		sub   *SubmissionStatus
		want  DisplayStatus
	}{
		{"无提交_分配通知", NotifFormAssigned, nil, DisplayPending},
		{"无提交_驳回通知", NotifFormRejected, nil, DisplayRejected},
		{"无提交_完成通知", NotifFormCompleted, nil, DisplayCompleted},
		{"无提交_待审核通知", NotifSubmissionPending, nil, DisplayPending},
		{"待提交", NotifFormAssigned, statusPtr(StatusNotYetResponded), DisplayPending},
		{"已提交", NotifFormAssigned, statusPtr(StatusUserResponded), DisplayInProcess},
		{"已驳回", NotifFormRejected, statusPtr(StatusRejectionProcess), DisplayRejected},
		{"重新提交", NotifFormAssigned, statusPtr(StatusRejectedResponded), DisplayInProcess},
		{"已完成", NotifFormCompleted, statusPtr(StatusCompleted), DisplayCompleted},
		// 提交状态优先于通知类型
		{"通知滞后", NotifFormAssigned, statusPtr(StatusCompleted), DisplayCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.notif, tt.sub); got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}
}

func TestCanFill(t *testing.T) {
	tests := []struct {
		name  string
		notif NotificationType
		sub   *SubmissionStatus
		want  bool
	}{
		{"无提交_分配通知", NotifFormAssigned, nil, true},
		{"无提交_完成通知", NotifFormCompleted, nil, false},
		{"待提交", NotifFormAssigned, statusPtr(StatusNotYetResponded), true},
		{"已提交", NotifFormAssigned, statusPtr(StatusUserResponded), false},
		{"已驳回", NotifFormRejected, statusPtr(StatusRejectionProcess), true},
		{"重新提交", NotifFormAssigned, statusPtr(StatusRejectedResponded), false},
		{"已完成", NotifFormCompleted, statusPtr(StatusCompleted), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanFill(tt.notif, tt.sub); got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestExpectedDisplay(t *testing.T) {
	want := map[SubmissionStatus]DisplayStatus{
		StatusNotYetResponded:   DisplayPending,
		StatusUserResponded:     DisplayInProcess,
		StatusRejectionProcess:  DisplayRejected,
		StatusRejectedResponded: DisplayInProcess,
		StatusCompleted:         DisplayCompleted,
	}
	for status, display := range want {
		if got := ExpectedDisplay(status); got != display {
			t.Errorf("%s: 期望 %s，实际 %s", status, display, got)
		}
	}
}

func TestFieldType_Accepts(t *testing.T) {
	if !FieldPDF.Accepts("application/pdf") {
		t.Error("PDF 字段应接受 application/pdf")
	}
	if !FieldExcel.Accepts("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") {
		t.Error("Excel 字段应接受 xlsx")
	}
	if !FieldJPEG.Accepts("IMAGE/JPEG; charset=binary") {
		t.Error("应忽略大小写与参数部分")
	}
	if FieldPNG.Accepts("image/jpeg") {
		t.Error("PNG 字段不应接受 JPEG")
	}
	if FieldType("Zip").Valid() {
		t.Error("未知字段类型不应有效")
	}
	if len(FieldTypes()) != 6 {
		t.Errorf("期望 6 种字段类型，实际 %d", len(FieldTypes()))
	}
}
