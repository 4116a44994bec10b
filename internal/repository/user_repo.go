package repository

import (
	"context"

	"gorm.io/gorm"

	"formflow/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	// ListByRole 角色成员（分配解析的输入）
	ListByRole(ctx context.Context, roleID string) ([]model.User, error)
	// ListWithPermission 拥有指定权限的全部有效用户
	ListWithPermission(ctx context.Context, permission string) ([]model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

// Create 仅写入 user_roles 关联，不回写角色本身
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Roles").Preload("Roles.Permissions").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Roles").Preload("Roles.Permissions").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Roles").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) ListByRole(ctx context.Context, roleID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.user_id = users.user_id").
		Where("ur.role_id = ? AND users.is_active = ?", roleID, true).
		Order("users.created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListWithPermission(ctx context.Context, permission string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Distinct("users.*").
		Joins("JOIN user_roles ur ON ur.user_id = users.user_id").
		Joins("JOIN role_permissions rp ON rp.role_id = ur.role_id").
		Joins("JOIN permissions p ON p.permission_id = rp.permission_id").
		Where("p.name = ? AND users.is_active = ?", permission, true).
		Find(&users).Error
	return users, err
}
