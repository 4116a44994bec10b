package dto

import "time"

// ── 表单模块 DTO ──

// FormFieldRequest 表单字段定义
type FormFieldRequest struct {
	Label    string `json:"label"    binding:"required,max=200"`
	Type     string `json:"type"     binding:"required,field_type"`
	Required *bool  `json:"required"` // 默认必填
}

// CreateFormRequest 创建表单请求
type CreateFormRequest struct {
	Title       string             `json:"title"       binding:"required,max=200"`
	Description string             `json:"description" binding:"omitempty,max=5000"`
	Fields      []FormFieldRequest `json:"fields"      binding:"required,min=1,max=50,dive"`
	RoleIDs     []string           `json:"role_ids"    binding:"omitempty,dive,uuid"`
	UserIDs     []string           `json:"user_ids"    binding:"omitempty,dive,uuid"`
}

// UpdateFormRequest 更新表单基本信息（字段定义不可修改）
type UpdateFormRequest struct {
	Title       *string `json:"title"       binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Status      *string `json:"status"      binding:"omitempty,oneof=active inactive"`
}

// AssignFormRequest 设置表单分配（整体替换）
type AssignFormRequest struct {
	RoleIDs []string `json:"role_ids" binding:"omitempty,dive,uuid"`
	UserIDs []string `json:"user_ids" binding:"omitempty,dive,uuid"`
}

// FormListRequest 表单列表查询参数
type FormListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=active inactive"`
}

// FormFieldResponse 表单字段
type FormFieldResponse struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
	Required  bool   `json:"required"`
}

// FormResponse 表单信息
type FormResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      string              `json:"status"`
	CreatorID   string              `json:"creator_id"`
	Fields      []FormFieldResponse `json:"fields"`
	RoleIDs     []string            `json:"role_ids"`
	UserIDs     []string            `json:"user_ids"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AssignmentSyncResponse 分配同步结果
type AssignmentSyncResponse struct {
	Assignees int `json:"assignees"` // 解析后的分配人总数
	Created   int `json:"created"`   // 本次新建的提交记录数
}
