package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/event"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
)

// ── 表单模块业务错误 ──

var (
	ErrFormHasSubmissions = errors.New("表单已有用户提交，不可删除")
	ErrInvalidFieldType   = errors.New("不支持的字段类型")
	ErrAssigneeNotFound   = errors.New("分配对象中包含不存在的角色或用户")
)

// FormService 表单管理接口
type FormService interface {
	Create(ctx context.Context, req *dto.CreateFormRequest, actor workflow.Actor) (*dto.FormResponse, error)
	GetByID(ctx context.Context, id string) (*dto.FormResponse, error)
	List(ctx context.Context, req *dto.FormListRequest) ([]dto.FormResponse, error)
	// Update 修改基本信息或启停状态；重新启用时补齐分配
	Update(ctx context.Context, id string, req *dto.UpdateFormRequest, actor workflow.Actor) (*dto.FormResponse, error)
	// SetAssignments 整体替换分配角色与用户，并为新增分配人建立提交与通知
	SetAssignments(ctx context.Context, id string, req *dto.AssignFormRequest, actor workflow.Actor) (*dto.AssignmentSyncResponse, error)
	Delete(ctx context.Context, id string, actor workflow.Actor) error
}

type formService struct {
	repo        *repository.Repository
	submissions SubmissionService
	publisher   event.Publisher
	logger      *zap.Logger
}

// NewFormService 创建 FormService 实例
func NewFormService(repo *repository.Repository, submissions SubmissionService, publisher event.Publisher, logger *zap.Logger) FormService {
	return &formService{repo: repo, submissions: submissions, publisher: publisher, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *formService) Create(ctx context.Context, req *dto.CreateFormRequest, actor workflow.Actor) (*dto.FormResponse, error) {
	if !actor.Can(workflow.PermManageForms) {
		return nil, ErrNoPermission
	}

	fields := make([]model.FormField, 0, len(req.Fields))
	for i, f := range req.Fields {
		ft := workflow.FieldType(f.Type)
		if !ft.Valid() {
			return nil, ErrInvalidFieldType
		}
		required := true
		if f.Required != nil {
			required = *f.Required
		}
		fields = append(fields, model.FormField{
			Label:     strings.TrimSpace(f.Label),
			Type:      ft,
			SortOrder: i,
			Required:  required,
		})
	}

	roles, users, err := s.loadAssignees(ctx, req.RoleIDs, req.UserIDs)
	if err != nil {
		return nil, err
	}

	form := &model.Form{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      workflow.FormActive,
		CreatorID:   actor.UserID,
		Fields:      fields,
		Roles:       roles,
		Users:       users,
	}
	form.CreatedBy = &actor.UserID

	if err := s.repo.Form.Create(ctx, form); err != nil {
		s.logger.Error("创建表单失败", zap.Error(err))
		return nil, err
	}

	if _, err := s.submissions.SyncAssignments(ctx, form.FormID, actor); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, form.FormID)
}

// ────────────────────── 查询 ──────────────────────

func (s *formService) GetByID(ctx context.Context, id string) (*dto.FormResponse, error) {
	form, err := s.repo.Form.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		s.logger.Error("查询表单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toFormResponse(form), nil
}

func (s *formService) List(ctx context.Context, req *dto.FormListRequest) ([]dto.FormResponse, error) {
	forms, err := s.repo.Form.List(ctx, req.Status)
	if err != nil {
		s.logger.Error("查询表单列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.FormResponse, 0, len(forms))
	for i := range forms {
		result = append(result, *toFormResponse(&forms[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *formService) Update(ctx context.Context, id string, req *dto.UpdateFormRequest, actor workflow.Actor) (*dto.FormResponse, error) {
	if !actor.Can(workflow.PermManageForms) {
		return nil, ErrNoPermission
	}

	form, err := s.repo.Form.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}

	activated := false
	if req.Title != nil {
		form.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		form.Description = *req.Description
	}
	if req.Status != nil {
		next := workflow.FormStatus(*req.Status)
		activated = form.Status != workflow.FormActive && next == workflow.FormActive
		form.Status = next
	}
	form.UpdatedBy = &actor.UserID

	if err := s.repo.Form.Update(ctx, form); err != nil {
		s.logger.Error("更新表单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 停用期间新增的角色成员在重新启用时补齐
	if activated {
		if _, err := s.submissions.SyncAssignments(ctx, id, actor); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// ────────────────────── SetAssignments ──────────────────────

func (s *formService) SetAssignments(ctx context.Context, id string, req *dto.AssignFormRequest, actor workflow.Actor) (*dto.AssignmentSyncResponse, error) {
	if !actor.Can(workflow.PermManageForms) {
		return nil, ErrNoPermission
	}
	if _, err := s.repo.Form.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	roleIDs, userIDs := dedupe(req.RoleIDs), dedupe(req.UserIDs)
	if _, _, err := s.loadAssignees(ctx, roleIDs, userIDs); err != nil {
		return nil, err
	}

	if err := s.repo.Form.SetAssignments(ctx, id, roleIDs, userIDs); err != nil {
		s.logger.Error("设置表单分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 移出分配范围的用户保留已有提交与通知
	results, err := s.submissions.SyncAssignments(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	form, err := s.repo.Form.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	assignees, err := resolveAssignees(ctx, s.repo, form)
	if err != nil {
		return nil, err
	}
	return &dto.AssignmentSyncResponse{Assignees: len(assignees), Created: len(results)}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *formService) Delete(ctx context.Context, id string, actor workflow.Actor) error {
	if !actor.Can(workflow.PermManageForms) {
		return ErrNoPermission
	}
	if _, err := s.repo.Form.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFormNotFound
		}
		return err
	}

	// 仅允许删除没有任何用户上传过的表单；未作答的占位提交随表单一并删除
	subs, err := s.repo.Submission.ListByForm(ctx, id)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.Status != workflow.StatusNotYetResponded {
			return ErrFormHasSubmissions
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	removed, err := s.repo.WithTx(tx).Form.Delete(ctx, id)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("删除表单失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	// 提交后通知订阅方移除占位提交；投递失败不影响删除结果
	if s.publisher != nil && len(removed) > 0 {
		events := make([]event.Event, 0, len(removed))
		for _, sid := range removed {
			events = append(events, event.SubmissionDeleted(sid))
		}
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("发布提交删除事件失败", zap.String("form_id", id), zap.Error(err))
		}
	}
	return nil
}

// ── 内部辅助方法 ──

// loadAssignees 校验并加载分配的角色与用户
func (s *formService) loadAssignees(ctx context.Context, roleIDs, userIDs []string) ([]model.Role, []model.User, error) {
	roles := make([]model.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		r, err := s.repo.Role.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrAssigneeNotFound
			}
			return nil, nil, err
		}
		roles = append(roles, model.Role{RoleID: r.RoleID, Name: r.Name})
	}
	users := make([]model.User, 0, len(userIDs))
	for _, id := range userIDs {
		u, err := s.repo.User.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrAssigneeNotFound
			}
			return nil, nil, err
		}
		users = append(users, model.User{UserID: u.UserID, Name: u.Name, Email: u.Email, IsActive: u.IsActive})
	}
	return roles, users, nil
}
