package model

import (
	"time"

	"gorm.io/datatypes"

	"formflow/backend/internal/workflow"
)

// FormSubmission 表单提交表 — 对应 form_submissions，每个 (form, user) 唯一
type FormSubmission struct {
	SubmissionID string                    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"               json:"submission_id"`
	FormID       string                    `gorm:"type:uuid;not null;uniqueIndex:uk_submission_form_user"       json:"form_id"`
	UserID       string                    `gorm:"type:uuid;not null;uniqueIndex:uk_submission_form_user"       json:"user_id"`
	Status       workflow.SubmissionStatus `gorm:"type:varchar(30);not null;default:'not_yet_responded'"        json:"status"`
	SubmittedAt  *time.Time                `json:"submitted_at,omitempty"`
	ReviewedAt   *time.Time                `json:"reviewed_at,omitempty"`
	VersionedModel

	// 关联
	Form      *Form                `gorm:"foreignKey:FormID;references:FormID"             json:"form,omitempty"`
	User      *User                `gorm:"foreignKey:UserID;references:UserID"             json:"user,omitempty"`
	Responses []SubmissionResponse `gorm:"foreignKey:SubmissionID;references:SubmissionID" json:"responses,omitempty"`
}

// TableName 指定表名
func (FormSubmission) TableName() string { return "form_submissions" }

// StatusPtr 返回状态指针，供状态机与通知推导使用
func (s *FormSubmission) StatusPtr() *workflow.SubmissionStatus {
	if s == nil {
		return nil
	}
	st := s.Status
	return &st
}

// SubmissionResponse 字段上传记录表 — 对应 submission_responses
// 每次重新提交新增一行，旧行标记为 resubmitted，不覆盖
type SubmissionResponse struct {
	ResponseID      string                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"response_id"`
	SubmissionID    string                  `gorm:"type:uuid;not null;index"                       json:"submission_id"`
	FieldID         string                  `gorm:"type:uuid;not null;index"                       json:"field_id"`
	FilePath        string                  `gorm:"type:varchar(500);not null"                     json:"file_path"`
	OriginalName    string                  `gorm:"type:varchar(255);not null"                     json:"original_name"`
	MimeType        string                  `gorm:"type:varchar(150);not null"                     json:"mime_type"`
	FileSize        int64                   `gorm:"not null"                                       json:"file_size"`
	Status          workflow.ResponseStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	RejectionReason *string                 `gorm:"type:text"                                      json:"rejection_reason,omitempty"`
	BaseModel

	// 关联
	Field *FormField `gorm:"foreignKey:FieldID;references:FieldID" json:"field,omitempty"`
}

// TableName 指定表名
func (SubmissionResponse) TableName() string { return "submission_responses" }

// SubmissionReview 审核记录表 — 对应 submission_reviews，只追加
type SubmissionReview struct {
	ReviewID         string                                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"review_id"`
	SubmissionID     string                                  `gorm:"type:uuid;not null;index"                       json:"submission_id"`
	ReviewerID       string                                  `gorm:"type:uuid;not null"                             json:"reviewer_id"`
	Action           workflow.ReviewAction                   `gorm:"type:varchar(20);not null"                      json:"action"` // approved | rejected | re-approved | re-rejected | edited
	Notes            string                                  `gorm:"type:text"                                      json:"notes,omitempty"`
	RejectionReasons datatypes.JSONType[map[string]string] `gorm:"type:jsonb"                                     json:"rejection_reasons"`
	ReviewedAt       time.Time                               `gorm:"not null"                                       json:"reviewed_at"`

	// 关联
	Reviewer *User `gorm:"foreignKey:ReviewerID;references:UserID" json:"reviewer,omitempty"`
}

// TableName 指定表名
func (SubmissionReview) TableName() string { return "submission_reviews" }

// Reasons 返回驳回原因快照（field_id → reason）
func (r *SubmissionReview) Reasons() map[string]string {
	m := r.RejectionReasons.Data()
	if m == nil {
		return map[string]string{}
	}
	return m
}
