package dto

// ── 角色模块 DTO ──

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name        string   `json:"name"        binding:"required,min=2,max=50"`
	Description string   `json:"description" binding:"omitempty,max=255"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,required"`
}

// SetRolePermissionsRequest 设置角色权限
type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"dive,required"`
}

// SetRoleMembersRequest 设置角色成员（整体替换）
type SetRoleMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"dive,uuid"`
}

// RoleResponse 角色信息
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// PermissionResponse 权限信息
type PermissionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SetRoleMembersResponse 设置成员后的同步结果
type SetRoleMembersResponse struct {
	SyncedForms int `json:"synced_forms"`
	NewAssignee int `json:"new_assignees"` // 新建的提交记录数
}
