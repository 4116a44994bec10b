package repository

import (
	"context"

	"gorm.io/gorm"

	"formflow/backend/internal/model"
)

// RoleRepository 角色与权限数据访问接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	GetByID(ctx context.Context, id string) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	// SetPermissions 以权限名整体替换角色权限
	SetPermissions(ctx context.Context, roleID string, permissions []string) error
	// SetMembers 整体替换角色成员
	SetMembers(ctx context.Context, roleID string, userIDs []string) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Omit("Permissions.*").Create(role).Error
}

func (r *roleRepo) GetByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("role_id = ?", id).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("name ASC").
		Find(&roles).Error
	return roles, err
}

func (r *roleRepo) SetPermissions(ctx context.Context, roleID string, permissions []string) error {
	var perms []model.Permission
	if len(permissions) > 0 {
		if err := r.db.WithContext(ctx).
			Where("name IN ?", permissions).
			Find(&perms).Error; err != nil {
			return err
		}
	}
	role := &model.Role{RoleID: roleID}
	return r.db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms)
}

func (r *roleRepo) SetMembers(ctx context.Context, roleID string, userIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("role_id = ?", roleID).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]model.UserRole, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, model.UserRole{UserID: uid, RoleID: roleID})
	}
	return db.Create(&rows).Error
}

func (r *roleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}
