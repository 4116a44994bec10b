package model

// Role 角色表 — 对应 roles
type Role struct {
	RoleID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name        string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel

	// 关联
	Permissions []Permission `gorm:"many2many:role_permissions;foreignKey:RoleID;joinForeignKey:RoleID;references:PermissionID;joinReferences:PermissionID" json:"permissions,omitempty"`
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

// Permission 权限表 — 对应 permissions
type Permission struct {
	PermissionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"permission_id"`
	Name         string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	Description  string `gorm:"type:varchar(255)"                              json:"description,omitempty"`
}

// TableName 指定表名
func (Permission) TableName() string { return "permissions" }

// UserRole 用户-角色关联表 — 对应 user_roles
type UserRole struct {
	UserID string `gorm:"type:uuid;primaryKey" json:"user_id"`
	RoleID string `gorm:"type:uuid;primaryKey" json:"role_id"`
}

// TableName 指定表名
func (UserRole) TableName() string { return "user_roles" }
