package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"formflow/backend/internal/event"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
)

// notificationProjector 维护与提交状态同步的通知。
//
// 分配人通知按 (user, form) 原地更新（upsert）；审核人待办通知每次新建。
// 所有方法都在调用方的事务内执行，并返回对应的领域事件。
type notificationProjector struct{}

// upsertAssignment 更新或创建 (user, form) 的分配人通知。重复调用结果一致。
// submissionID 为 nil 时清除关联（提交被删除后回到待填写）。
func (notificationProjector) upsertAssignment(
	ctx context.Context,
	repo *repository.Repository,
	userID, formID string,
	submissionID *string,
	payload workflow.NotificationPayload,
	unread bool,
) (*model.Notification, event.Event, error) {
	existing, err := repo.Notification.GetAssignment(ctx, userID, formID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, event.Event{}, err
	}

	// 同一 (form, user) 的动作已由提交行锁串行化，部分唯一索引兜底
	if existing == nil {
		n := &model.Notification{UserID: userID, FormID: formID}
		applyPayload(n, submissionID, payload, unread)
		if err := repo.Notification.Create(ctx, n); err != nil {
			return nil, event.Event{}, err
		}
		return n, event.NotificationCreated(n), nil
	}

	applyPayload(existing, submissionID, payload, unread)
	if err := repo.Notification.Update(ctx, existing); err != nil {
		return nil, event.Event{}, err
	}
	return existing, event.NotificationUpdated(existing), nil
}

// createReviewerPending 为审核人新建待办通知（不去重）
func (notificationProjector) createReviewerPending(
	ctx context.Context,
	repo *repository.Repository,
	reviewerID string,
	payload workflow.ReviewPendingNotif,
) (*model.Notification, event.Event, error) {
	submissionID := payload.SubmissionID
	submitterID := payload.SubmitterID
	n := &model.Notification{
		UserID:      reviewerID,
		FormID:      payload.FormID,
		SubmitterID: &submitterID,
	}
	applyPayload(n, &submissionID, payload, true)
	if err := repo.Notification.Create(ctx, n); err != nil {
		return nil, event.Event{}, err
	}
	return n, event.NotificationCreated(n), nil
}

// markPendingRead 审核结论对所有审核人生效，该提交的待办通知一并标记已读
func (notificationProjector) markPendingRead(
	ctx context.Context,
	repo *repository.Repository,
	submissionID string,
) ([]model.Notification, []event.Event, error) {
	updated, err := repo.Notification.MarkPendingReadBySubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	events := make([]event.Event, 0, len(updated))
	for i := range updated {
		events = append(events, event.NotificationUpdated(&updated[i]))
	}
	return updated, events, nil
}

func applyPayload(n *model.Notification, submissionID *string, payload workflow.NotificationPayload, unread bool) {
	n.Type = payload.Type()
	n.Title = payload.Title()
	n.Message = payload.Message()
	n.SubmissionID = submissionID
	if data, err := json.Marshal(payload.Wire()); err == nil {
		n.Data = datatypes.JSON(data)
	}
	if unread {
		n.Status = workflow.NotifUnread
		n.ReadAt = nil
		return
	}
	n.Status = workflow.NotifRead
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
}
