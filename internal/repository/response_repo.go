package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
)

// ResponseRepository 字段上传记录数据访问接口
//
// 上传记录只追加不覆盖：同一 (submission, field) 的当前行在重新上传时标记为 resubmitted，
// 因此任意时刻每个字段至多一行处于 pending/approved。
type ResponseRepository interface {
	// RecordUpload 将字段当前行标记为 resubmitted 后插入新行
	RecordUpload(ctx context.Context, resp *model.SubmissionResponse) error
	// ApproveAll 将提交下所有非 resubmitted 行标记为 approved
	ApproveAll(ctx context.Context, submissionID string) error
	// RejectWithReasons 仅将有非空原因的字段当前行标记为 rejected，其余字段保持不变
	RejectWithReasons(ctx context.Context, submissionID string, reasons map[string]string) (int64, error)
	// ReplaceFile 替换已通过记录的文件（管理员编辑）
	ReplaceFile(ctx context.Context, responseID string, file *model.SubmissionResponse) error
	ListBySubmission(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error)
	// ListCurrent 每个字段的当前行（非 resubmitted）
	ListCurrent(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error)
	// LatestApprovedByField 每个字段最近一条 approved 记录
	LatestApprovedByField(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error)
	// LatestRejectedByField 每个字段最近一条带驳回原因的记录（驳回历史展示）
	LatestRejectedByField(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error)
}

type responseRepo struct {
	db *gorm.DB
}

// NewResponseRepo 创建 ResponseRepository 实例
func NewResponseRepo(db *gorm.DB) ResponseRepository {
	return &responseRepo{db: db}
}

func (r *responseRepo) RecordUpload(ctx context.Context, resp *model.SubmissionResponse) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.SubmissionResponse{}).
		Where("submission_id = ? AND field_id = ? AND status <> ?",
			resp.SubmissionID, resp.FieldID, workflow.ResponseResubmitted).
		Updates(map[string]interface{}{
			"status":     workflow.ResponseResubmitted,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error; err != nil {
		return err
	}
	if resp.Status == "" {
		resp.Status = workflow.ResponsePending
	}
	return db.Omit("Field").Create(resp).Error
}

func (r *responseRepo) ApproveAll(ctx context.Context, submissionID string) error {
	return r.db.WithContext(ctx).
		Model(&model.SubmissionResponse{}).
		Where("submission_id = ? AND status <> ?", submissionID, workflow.ResponseResubmitted).
		Updates(map[string]interface{}{
			"status":           workflow.ResponseApproved,
			"rejection_reason": nil,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *responseRepo) RejectWithReasons(ctx context.Context, submissionID string, reasons map[string]string) (int64, error) {
	var affected int64
	for fieldID, reason := range reasons {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			continue
		}
		result := r.db.WithContext(ctx).
			Model(&model.SubmissionResponse{}).
			Where("submission_id = ? AND field_id = ? AND status <> ?",
				submissionID, fieldID, workflow.ResponseResubmitted).
			Updates(map[string]interface{}{
				"status":           workflow.ResponseRejected,
				"rejection_reason": reason,
				"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

func (r *responseRepo) ReplaceFile(ctx context.Context, responseID string, file *model.SubmissionResponse) error {
	return r.db.WithContext(ctx).
		Model(&model.SubmissionResponse{}).
		Where("response_id = ? AND status = ?", responseID, workflow.ResponseApproved).
		Updates(map[string]interface{}{
			"file_path":     file.FilePath,
			"original_name": file.OriginalName,
			"mime_type":     file.MimeType,
			"file_size":     file.FileSize,
			"updated_by":    file.UpdatedBy,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *responseRepo) ListBySubmission(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	var resps []model.SubmissionResponse
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&resps).Error
	return resps, err
}

func (r *responseRepo) ListCurrent(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	var resps []model.SubmissionResponse
	err := r.db.WithContext(ctx).
		Where("submission_id = ? AND status <> ?", submissionID, workflow.ResponseResubmitted).
		Order("created_at ASC").
		Find(&resps).Error
	return resps, err
}

// LatestRejectedByField 被驳回的行在重新上传后会转为 resubmitted，因此按驳回原因而非状态筛选
func (r *responseRepo) LatestRejectedByField(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	var resps []model.SubmissionResponse
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (field_id) *
			FROM submission_responses
			WHERE submission_id = ? AND rejection_reason IS NOT NULL
			ORDER BY field_id, created_at DESC`, submissionID).
		Scan(&resps).Error
	return resps, err
}

// LatestApprovedByField 使用 DISTINCT ON 取每个字段最近一条 approved 记录
func (r *responseRepo) LatestApprovedByField(ctx context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	var resps []model.SubmissionResponse
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (field_id) *
			FROM submission_responses
			WHERE submission_id = ? AND status = ?
			ORDER BY field_id, created_at DESC`, submissionID, workflow.ResponseApproved).
		Scan(&resps).Error
	return resps, err
}
