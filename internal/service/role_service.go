package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
	pkgerrors "formflow/backend/pkg/errors"
)

// ── 角色模块业务错误 ──

var (
	ErrRoleNameExists     = errors.New("角色名称已存在")
	ErrUnknownPermission  = errors.New("未知的权限标识")
	ErrRoleMemberNotFound = errors.New("成员中包含不存在的用户")
)

// RoleService 角色与权限管理接口。
// 角色成员变动后，引用该角色的启用表单会立即重新同步分配。
type RoleService interface {
	Create(ctx context.Context, req *dto.CreateRoleRequest, actor workflow.Actor) (*dto.RoleResponse, error)
	List(ctx context.Context) ([]dto.RoleResponse, error)
	ListPermissions(ctx context.Context) ([]dto.PermissionResponse, error)
	SetPermissions(ctx context.Context, roleID string, req *dto.SetRolePermissionsRequest, actor workflow.Actor) (*dto.RoleResponse, error)
	SetMembers(ctx context.Context, roleID string, req *dto.SetRoleMembersRequest, actor workflow.Actor) (*dto.SetRoleMembersResponse, error)
}

type roleService struct {
	repo        *repository.Repository
	submissions SubmissionService
	logger      *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, submissions SubmissionService, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, submissions: submissions, logger: logger}
}

func (s *roleService) Create(ctx context.Context, req *dto.CreateRoleRequest, actor workflow.Actor) (*dto.RoleResponse, error) {
	if !actor.Can(workflow.PermManageRoles) {
		return nil, ErrNoPermission
	}
	if err := s.checkPermissions(ctx, req.Permissions); err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	role.CreatedBy = &actor.UserID

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Role.Create(ctx, role); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoleNameExists
		}
		s.logger.Error("创建角色失败", zap.Error(err))
		return nil, err
	}
	if err := txRepo.Role.SetPermissions(ctx, role.RoleID, req.Permissions); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("设置角色权限失败", zap.Error(err))
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.get(ctx, role.RoleID)
}

func (s *roleService) List(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.repo.Role.List(ctx)
	if err != nil {
		s.logger.Error("查询角色列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		result = append(result, toRoleResponse(&roles[i]))
	}
	return result, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]dto.PermissionResponse, error) {
	perms, err := s.repo.Role.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.PermissionResponse, 0, len(perms))
	for _, p := range perms {
		result = append(result, dto.PermissionResponse{Name: p.Name, Description: p.Description})
	}
	return result, nil
}

func (s *roleService) SetPermissions(ctx context.Context, roleID string, req *dto.SetRolePermissionsRequest, actor workflow.Actor) (*dto.RoleResponse, error) {
	if !actor.Can(workflow.PermManageRoles) {
		return nil, ErrNoPermission
	}
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.checkPermissions(ctx, req.Permissions); err != nil {
		return nil, err
	}
	if err := s.repo.Role.SetPermissions(ctx, roleID, req.Permissions); err != nil {
		s.logger.Error("设置角色权限失败", zap.String("role_id", roleID), zap.Error(err))
		return nil, err
	}
	return s.get(ctx, roleID)
}

func (s *roleService) SetMembers(ctx context.Context, roleID string, req *dto.SetRoleMembersRequest, actor workflow.Actor) (*dto.SetRoleMembersResponse, error) {
	if !actor.Can(workflow.PermManageRoles) {
		return nil, ErrNoPermission
	}
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return nil, err
	}
	for _, uid := range req.UserIDs {
		if _, err := s.repo.User.GetByID(ctx, uid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRoleMemberNotFound
			}
			return nil, err
		}
	}

	if err := s.repo.Role.SetMembers(ctx, roleID, dedupe(req.UserIDs)); err != nil {
		s.logger.Error("设置角色成员失败", zap.String("role_id", roleID), zap.Error(err))
		return nil, err
	}

	// 成员变动后重新同步引用该角色的启用表单；被移出的成员保留已有提交
	forms, err := s.repo.Form.ListActiveByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	resp := &dto.SetRoleMembersResponse{}
	for _, f := range forms {
		results, err := s.submissions.SyncAssignments(ctx, f.FormID, actor)
		if err != nil {
			return nil, err
		}
		resp.SyncedForms++
		resp.NewAssignee += len(results)
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *roleService) loadRole(ctx context.Context, roleID string) (*model.Role, error) {
	role, err := s.repo.Role.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) get(ctx context.Context, roleID string) (*dto.RoleResponse, error) {
	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(role)
	return &resp, nil
}

// checkPermissions 权限标识必须是已登记的权限
func (s *roleService) checkPermissions(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	perms, err := s.repo.Role.ListPermissions(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(perms))
	for _, p := range perms {
		known[p.Name] = true
	}
	for _, n := range names {
		if !known[n] {
			return ErrUnknownPermission
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
