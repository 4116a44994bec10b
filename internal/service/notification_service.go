package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/event"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 通知查询接口。
// 展示状态与 can_fill 在读取时由当前提交状态推导，不依赖通知行上的冗余字段。
type NotificationService interface {
	ListForUser(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error)
}

type notificationService struct {
	repo      *repository.Repository
	publisher event.Publisher
	logger    *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, publisher event.Publisher, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, publisher: publisher, logger: logger}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		sub, err := s.submissionFor(ctx, &list[i])
		if err != nil {
			s.logger.Error("查询通知关联提交失败",
				zap.String("notification_id", list[i].NotificationID), zap.Error(err))
			return nil, 0, err
		}
		result = append(result, toNotificationResponse(&list[i], sub))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error) {
	n, err := s.repo.Notification.MarkRead(ctx, userID, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event.NotificationUpdated(n)); err != nil {
			s.logger.Warn("发布领域事件失败", zap.Error(err))
		}
	}

	sub, err := s.submissionFor(ctx, n)
	if err != nil {
		return nil, err
	}
	resp := toNotificationResponse(n, sub)
	return &resp, nil
}

// submissionFor 查找通知对应的提交：分配人通知按 (form, user)，待办通知按 submission_id
func (s *notificationService) submissionFor(ctx context.Context, n *model.Notification) (*model.FormSubmission, error) {
	var (
		sub *model.FormSubmission
		err error
	)
	switch {
	case n.Type.IsAssignment():
		sub, err = s.repo.Submission.GetByFormAndUser(ctx, n.FormID, n.UserID)
	case n.SubmissionID != nil:
		sub, err = s.repo.Submission.GetByID(ctx, *n.SubmissionID)
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sub, err
}
