package repository

import (
	"context"

	"gorm.io/gorm"

	"formflow/backend/internal/model"
)

// ReviewRepository 审核记录数据访问接口（只追加，不提供更新与删除）
type ReviewRepository interface {
	Create(ctx context.Context, review *model.SubmissionReview) error
	// ListBySubmission 按 reviewed_at 倒序
	ListBySubmission(ctx context.Context, submissionID string) ([]model.SubmissionReview, error)
	// Latest 最近一次审核决定，不存在时返回 gorm.ErrRecordNotFound
	Latest(ctx context.Context, submissionID string) (*model.SubmissionReview, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepo 创建 ReviewRepository 实例
func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Create(ctx context.Context, review *model.SubmissionReview) error {
	return r.db.WithContext(ctx).Omit("Reviewer").Create(review).Error
}

func (r *reviewRepo) ListBySubmission(ctx context.Context, submissionID string) ([]model.SubmissionReview, error) {
	var reviews []model.SubmissionReview
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("submission_id = ?", submissionID).
		Order("reviewed_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepo) Latest(ctx context.Context, submissionID string) (*model.SubmissionReview, error) {
	var review model.SubmissionReview
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("reviewed_at DESC").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}
