package workflow

// Trigger 提交状态机的触发动作
type Trigger string

const (
	TriggerAssign       Trigger = "assign"
	TriggerSubmit       Trigger = "submit"
	TriggerApprove      Trigger = "approve"
	TriggerReject       Trigger = "reject"
	TriggerDirectUpload Trigger = "direct_upload"
	TriggerEdit         Trigger = "edit"
)

// Transition 一次合法迁移的结果
type Transition struct {
	From   *SubmissionStatus // nil 表示此前不存在提交记录
	To     SubmissionStatus
	Action ReviewAction // 需要写入审核记录时非空
}

// Creates 该迁移是否需要新建提交记录
func (t Transition) Creates() bool { return t.From == nil }

// Next 根据当前状态与触发动作计算目标状态。
// from 为 nil 表示 (form, user) 尚无提交记录。
//
// 状态流转：
//
//	not_yet_responded → user_responded → {completed | rejection_process}
//	rejection_process → rejected_responded → {completed | rejection_process}
func Next(from *SubmissionStatus, trigger Trigger) (Transition, error) {
	t := Transition{From: from}

	if from == nil {
		switch trigger {
		case TriggerAssign:
			t.To = StatusNotYetResponded
		case TriggerSubmit:
			t.To = StatusUserResponded
		case TriggerDirectUpload:
			t.To = StatusCompleted
			t.Action = ActionApproved
		default:
			return Transition{}, ErrInvalidTransition
		}
		return t, nil
	}

	cur := *from
	if trigger == TriggerAssign {
		return Transition{}, ErrDuplicateSubmission
	}

	if cur == StatusCompleted {
		switch trigger {
		case TriggerEdit:
			t.To = StatusCompleted
			t.Action = ActionEdited
			return t, nil
		case TriggerApprove, TriggerReject:
			// 审核前置条件为待审核状态；并发审核中后到的一方落在这里
			return Transition{}, ErrInvalidTransition
		}
		return Transition{}, ErrAlreadyCompleted
	}

	switch trigger {
	case TriggerSubmit:
		switch cur {
		case StatusNotYetResponded:
			t.To = StatusUserResponded
		case StatusRejectionProcess:
			t.To = StatusRejectedResponded
		default:
			return Transition{}, ErrInvalidTransition
		}
	case TriggerApprove:
		switch cur {
		case StatusUserResponded:
			t.To, t.Action = StatusCompleted, ActionApproved
		case StatusRejectedResponded:
			t.To, t.Action = StatusCompleted, ActionReApproved
		default:
			return Transition{}, ErrInvalidTransition
		}
	case TriggerReject:
		switch cur {
		case StatusUserResponded:
			t.To, t.Action = StatusRejectionProcess, ActionRejected
		case StatusRejectedResponded:
			t.To, t.Action = StatusRejectionProcess, ActionReRejected
		default:
			return Transition{}, ErrInvalidTransition
		}
	case TriggerDirectUpload:
		t.To, t.Action = StatusCompleted, ActionApproved
	default:
		return Transition{}, ErrInvalidTransition
	}

	return t, nil
}

// IsResubmissionReview 审核动作是否针对重新提交
func (a ReviewAction) IsResubmissionReview() bool {
	return a == ActionReApproved || a == ActionReRejected
}
