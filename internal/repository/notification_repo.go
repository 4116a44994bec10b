package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
)

// assignmentTypes 分配人通知类型；同一 (user, form) 仅保留一条
var assignmentTypes = []workflow.NotificationType{
	workflow.NotifFormAssigned,
	workflow.NotifFormRejected,
	workflow.NotifFormCompleted,
}

// NotificationRepository 通知数据访问接口
//
// 分配人通知按 (user, form) 原地更新；审核人待办通知只新增，处理后标记已读。
type NotificationRepository interface {
	// GetAssignment 获取 (user, form) 的分配人通知，不存在时返回 gorm.ErrRecordNotFound
	GetAssignment(ctx context.Context, userID, formID string) (*model.Notification, error)
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	Create(ctx context.Context, n *model.Notification) error
	// Update 整行保存（类型、标题、内容、状态、已读时间、载荷）
	Update(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error)
	// MarkRead 标记用户自己的通知为已读；未命中返回 gorm.ErrRecordNotFound
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	// MarkPendingReadBySubmission 将该提交上所有审核人的未读待办通知标记为已读，返回被更新的行
	MarkPendingReadBySubmission(ctx context.Context, submissionID string) ([]model.Notification, error)
	// DeleteReviewerPendingBySubmission 删除提交相关的审核人待办通知
	DeleteReviewerPendingBySubmission(ctx context.Context, submissionID string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) GetAssignment(ctx context.Context, userID, formID string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND form_id = ? AND type IN ?", userID, formID, assignmentTypes).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) Update(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", n.NotificationID).
		Updates(map[string]interface{}{
			"type":          n.Type,
			"title":         n.Title,
			"message":       n.Message,
			"status":        n.Status,
			"read_at":       n.ReadAt,
			"data":          n.Data,
			"submission_id": n.SubmissionID,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var (
		items []model.Notification
		total int64
	)
	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("status = ?", workflow.NotifUnread)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ? AND status = ?", id, userID, workflow.NotifUnread).
		Updates(map[string]interface{}{
			"status":     workflow.NotifRead,
			"read_at":    now,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return n, nil
}

func (r *notificationRepo) MarkPendingReadBySubmission(ctx context.Context, submissionID string) ([]model.Notification, error) {
	var updated []model.Notification
	err := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("submission_id = ? AND type = ? AND status = ?",
			submissionID, workflow.NotifSubmissionPending, workflow.NotifUnread).
		Updates(map[string]interface{}{
			"status":     workflow.NotifRead,
			"read_at":    time.Now(),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	return updated, err
}

func (r *notificationRepo) DeleteReviewerPendingBySubmission(ctx context.Context, submissionID string) error {
	return r.db.WithContext(ctx).
		Where("submission_id = ? AND type = ?", submissionID, workflow.NotifSubmissionPending).
		Delete(&model.Notification{}).Error
}
