package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
)

// FormRepository 表单数据访问接口
type FormRepository interface {
	// Create 创建表单及其字段
	Create(ctx context.Context, form *model.Form) error
	GetByID(ctx context.Context, id string) (*model.Form, error)
	List(ctx context.Context, status string) ([]model.Form, error)
	Update(ctx context.Context, form *model.Form) error
	// SetAssignments 整体替换表单的角色分配与直接分配
	SetAssignments(ctx context.Context, formID string, roleIDs, userIDs []string) error
	// ListActiveByRole 分配给指定角色的所有启用表单
	ListActiveByRole(ctx context.Context, roleID string) ([]model.Form, error)
	// Delete 删除表单，返回随之删除的占位提交 ID
	Delete(ctx context.Context, id string) ([]string, error)
}

type formRepo struct {
	db *gorm.DB
}

// NewFormRepo 创建 FormRepository 实例
func NewFormRepo(db *gorm.DB) FormRepository {
	return &formRepo{db: db}
}

func (r *formRepo) Create(ctx context.Context, form *model.Form) error {
	return r.db.WithContext(ctx).Omit("Roles.*", "Users.*").Create(form).Error
}

func (r *formRepo) GetByID(ctx context.Context, id string) (*model.Form, error) {
	var form model.Form
	err := r.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Roles").
		Preload("Users").
		Where("form_id = ?", id).
		First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepo) List(ctx context.Context, status string) ([]model.Form, error) {
	var forms []model.Form
	db := r.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at DESC").Find(&forms).Error
	return forms, err
}

func (r *formRepo) Update(ctx context.Context, form *model.Form) error {
	return r.db.WithContext(ctx).
		Model(&model.Form{}).
		Where("form_id = ?", form.FormID).
		Updates(map[string]interface{}{
			"title":       form.Title,
			"description": form.Description,
			"status":      form.Status,
			"updated_by":  form.UpdatedBy,
		}).Error
}

func (r *formRepo) SetAssignments(ctx context.Context, formID string, roleIDs, userIDs []string) error {
	form := &model.Form{FormID: formID}
	db := r.db.WithContext(ctx)

	roles := make([]model.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		roles = append(roles, model.Role{RoleID: id})
	}
	if err := db.Model(form).Omit("Roles.*").Association("Roles").Replace(roles); err != nil {
		return err
	}

	users := make([]model.User, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, model.User{UserID: id})
	}
	return db.Model(form).Omit("Users.*").Association("Users").Replace(users)
}

func (r *formRepo) ListActiveByRole(ctx context.Context, roleID string) ([]model.Form, error) {
	var forms []model.Form
	err := r.db.WithContext(ctx).
		Joins("JOIN form_roles fr ON fr.form_id = forms.form_id").
		Where("fr.role_id = ? AND forms.status = ?", roleID, workflow.FormActive).
		Find(&forms).Error
	return forms, err
}

// Delete 删除表单及其未作答的占位提交；通知随外键级联删除
func (r *formRepo) Delete(ctx context.Context, id string) ([]string, error) {
	db := r.db.WithContext(ctx)
	var removed []model.FormSubmission
	if err := db.Clauses(clause.Returning{Columns: []clause.Column{{Name: "submission_id"}}}).
		Where("form_id = ?", id).
		Delete(&removed).Error; err != nil {
		return nil, err
	}
	if err := db.Select("Fields", "Roles", "Users").
		Delete(&model.Form{FormID: id}).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(removed))
	for _, s := range removed {
		ids = append(ids, s.SubmissionID)
	}
	return ids, nil
}
