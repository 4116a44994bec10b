package dto

import "time"

// ── 提交流程 DTO ──

// ReviewRequest 审核请求；驳回时 reasons 为 field_id → 原因，至少一项非空
type ReviewRequest struct {
	Decision string            `json:"decision" binding:"required,oneof=approve reject"`
	Notes    string            `json:"notes"    binding:"omitempty,max=2000"`
	Reasons  map[string]string `json:"reasons"  binding:"omitempty,dive,keys,uuid,endkeys,max=1000"`
}

// SubmissionResponse 提交记录
type SubmissionResponse struct {
	ID            string     `json:"id"`
	FormID        string     `json:"form_id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name,omitempty"`
	Status        string     `json:"status"`
	DisplayStatus string     `json:"display_status"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	Version       int        `json:"version"`
}

// UploadResponse 字段上传记录
type UploadResponse struct {
	ID              string    `json:"id"`
	FieldID         string    `json:"field_id"`
	OriginalName    string    `json:"original_name"`
	MimeType        string    `json:"mime_type"`
	FileSize        int64     `json:"file_size"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReviewResponse 审核记录
type ReviewResponse struct {
	ID               string            `json:"id"`
	ReviewerID       string            `json:"reviewer_id"`
	ReviewerName     string            `json:"reviewer_name,omitempty"`
	Action           string            `json:"action"`
	Notes            string            `json:"notes,omitempty"`
	RejectionReasons map[string]string `json:"rejection_reasons,omitempty"`
	ReviewedAt       time.Time         `json:"reviewed_at"`
}

// WorkflowResultResponse 流程动作结果
type WorkflowResultResponse struct {
	Submission    *SubmissionResponse    `json:"submission,omitempty"`
	Uploads       []UploadResponse       `json:"uploads,omitempty"`
	Review        *ReviewResponse        `json:"review,omitempty"`
	Notifications []NotificationResponse `json:"notifications,omitempty"`
}

// SubmissionDetailResponse 提交详情
type SubmissionDetailResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Current    []UploadResponse   `json:"current"`  // 每个字段当前行
	Approved   []UploadResponse   `json:"approved"` // 每个字段最近一次通过的文件
	History    []UploadResponse   `json:"history"`  // 全部上传记录
	Reviews    []ReviewResponse   `json:"reviews"`  // reviewed_at 倒序
}

// FormSubmissionsGroup 按表单分组的提交列表
type FormSubmissionsGroup struct {
	FormID      string               `json:"form_id"`
	FormTitle   string               `json:"form_title"`
	FormStatus  string               `json:"form_status"`
	Counts      map[string]int       `json:"counts"` // 提交状态 → 数量
	Submissions []SubmissionResponse `json:"submissions"`
}

// RejectionHistoryResponse 驳回历史：每个字段最近一次被驳回的记录 + 最近一次审核意见
type RejectionHistoryResponse struct {
	SubmissionID   string           `json:"submission_id"`
	Status         string           `json:"status"`
	Fields         []UploadResponse `json:"fields"`
	LatestAction   string           `json:"latest_action,omitempty"`
	LatestNotes    string           `json:"latest_notes,omitempty"`
	LatestReviewAt *time.Time       `json:"latest_review_at,omitempty"`
}
