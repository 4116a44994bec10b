package workflow

// DeriveStatus 计算通知卡片展示的状态。
// 提交记录存在时以提交状态为准；否则由通知类型决定。
func DeriveStatus(notifType NotificationType, submission *SubmissionStatus) DisplayStatus {
	if submission == nil {
		switch notifType {
		case NotifFormRejected:
			return DisplayRejected
		case NotifFormCompleted:
			return DisplayCompleted
		default:
			return DisplayPending
		}
	}

	switch *submission {
	case StatusUserResponded, StatusRejectedResponded:
		return DisplayInProcess
	case StatusRejectionProcess:
		return DisplayRejected
	case StatusCompleted:
		return DisplayCompleted
	default:
		return DisplayPending
	}
}

// CanFill 分配人当前是否可以（重新）上传文件
func CanFill(notifType NotificationType, submission *SubmissionStatus) bool {
	if submission == nil {
		return notifType == NotifFormAssigned
	}
	switch *submission {
	case StatusNotYetResponded:
		return notifType == NotifFormAssigned
	case StatusRejectionProcess:
		return true
	}
	return false
}

// ExpectedDisplay 每个提交状态对应的展示状态，用于一致性校验
func ExpectedDisplay(status SubmissionStatus) DisplayStatus {
	return DeriveStatus(NotifFormAssigned, &status)
}
