package dto

import (
	"encoding/json"
	"time"
)

// ── 通知模块 DTO ──

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知卡片；display_status 与 can_fill 由提交状态实时推导
type NotificationResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	Status        string          `json:"status"`
	FormID        string          `json:"form_id"`
	SubmissionID  *string         `json:"submission_id,omitempty"`
	SubmitterID   *string         `json:"submitter_id,omitempty"`
	DisplayStatus string          `json:"display_status"`
	CanFill       bool            `json:"can_fill"`
	Data          json.RawMessage `json:"data,omitempty"`
	ReadAt        *time.Time      `json:"read_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
