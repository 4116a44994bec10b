package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/service"
	"formflow/backend/pkg/response"
)

// RoleHandler 角色与权限 HTTP 处理器
type RoleHandler struct {
	roleSvc service.RoleService
}

// NewRoleHandler 创建 RoleHandler
func NewRoleHandler(roleSvc service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

// CreateRole 创建角色
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	role, err := h.roleSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleRoleError(c, err)
		return
	}

	response.Created(c, role)
}

// ListRoles 角色列表
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": roles})
}

// ListPermissions 全部权限标识
// GET /api/v1/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleSvc.ListPermissions(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": perms})
}

// SetPermissions 整体替换角色权限
// PUT /api/v1/roles/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var req dto.SetRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	role, err := h.roleSvc.SetPermissions(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleRoleError(c, err)
		return
	}

	response.OK(c, role)
}

// SetMembers 整体替换角色成员，并同步所有启用表单的分配
// PUT /api/v1/roles/:id/members
func (h *RoleHandler) SetMembers(c *gin.Context) {
	var req dto.SetRoleMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.roleSvc.SetMembers(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleRoleError(c, err)
		return
	}

	response.OK(c, result)
}

func handleRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoleNotFound):
		response.NotFound(c, 23001, "角色不存在")
	case errors.Is(err, service.ErrRoleNameExists):
		response.Conflict(c, 23002, "角色名称已存在")
	case errors.Is(err, service.ErrUnknownPermission):
		response.BadRequest(c, 23003, "未知的权限标识")
	case errors.Is(err, service.ErrRoleMemberNotFound):
		response.BadRequest(c, 23004, "成员中包含不存在的用户")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权操作")
	default:
		response.InternalError(c)
	}
}
