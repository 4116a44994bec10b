package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
	pkgerrors "formflow/backend/pkg/errors"
)

// SubmissionRepository 表单提交数据访问接口
type SubmissionRepository interface {
	// Create 新建提交记录；(form, user) 已存在时返回 workflow.ErrDuplicateSubmission
	Create(ctx context.Context, sub *model.FormSubmission) error
	GetByID(ctx context.Context, id string) (*model.FormSubmission, error)
	GetByFormAndUser(ctx context.Context, formID, userID string) (*model.FormSubmission, error)
	// GetByIDForUpdate / GetByFormAndUserForUpdate 在事务中加行锁读取
	GetByIDForUpdate(ctx context.Context, id string) (*model.FormSubmission, error)
	GetByFormAndUserForUpdate(ctx context.Context, formID, userID string) (*model.FormSubmission, error)
	// UpdateStatus 以 (status, version) 比较并交换；冲突返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, sub *model.FormSubmission, from workflow.SubmissionStatus) error
	ListByForm(ctx context.Context, formID string) ([]model.FormSubmission, error)
	ListByUser(ctx context.Context, userID string) ([]model.FormSubmission, error)
	// Delete 显式删除，级联删除上传记录与审核记录
	Delete(ctx context.Context, id string) error
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, sub *model.FormSubmission) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
	if pkgerrors.IsUniqueViolation(err) {
		return workflow.ErrDuplicateSubmission
	}
	return err
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.FormSubmission, error) {
	var sub model.FormSubmission
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("submission_id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) GetByFormAndUser(ctx context.Context, formID, userID string) (*model.FormSubmission, error) {
	var sub model.FormSubmission
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND user_id = ?", formID, userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.FormSubmission, error) {
	var sub model.FormSubmission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("submission_id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) GetByFormAndUserForUpdate(ctx context.Context, formID, userID string) (*model.FormSubmission, error) {
	var sub model.FormSubmission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("form_id = ? AND user_id = ?", formID, userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) UpdateStatus(ctx context.Context, sub *model.FormSubmission, from workflow.SubmissionStatus) error {
	oldVersion := sub.Version
	result := r.db.WithContext(ctx).
		Model(&model.FormSubmission{}).
		Where("submission_id = ? AND status = ? AND version = ?", sub.SubmissionID, from, oldVersion).
		Updates(map[string]interface{}{
			"status":       sub.Status,
			"submitted_at": sub.SubmittedAt,
			"reviewed_at":  sub.ReviewedAt,
			"updated_by":   sub.UpdatedBy,
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	sub.Version = oldVersion + 1
	return nil
}

func (r *submissionRepo) ListByForm(ctx context.Context, formID string) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("form_id = ?", formID).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepo) ListByUser(ctx context.Context, userID string) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepo) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("submission_id = ?", id).Delete(&model.SubmissionResponse{}).Error; err != nil {
		return err
	}
	if err := db.Where("submission_id = ?", id).Delete(&model.SubmissionReview{}).Error; err != nil {
		return err
	}
	return db.Where("submission_id = ?", id).Delete(&model.FormSubmission{}).Error
}
