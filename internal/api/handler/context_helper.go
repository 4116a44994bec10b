package handler

import (
	"github.com/gin-gonic/gin"

	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/jwt"
	"formflow/backend/pkg/response"
)

// 认证中间件写入 gin.Context 的键
const (
	CtxUserID = "user_id"
	CtxActor  = "actor"
	CtxClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 从 Gin 上下文中提取当前操作者（含实时权限）
func MustGetActor(c *gin.Context) (workflow.Actor, bool) {
	v, exists := c.Get(CtxActor)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return workflow.Actor{}, false
	}
	actor, ok := v.(workflow.Actor)
	if !ok || actor.UserID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return workflow.Actor{}, false
	}
	return actor, true
}

// MustGetClaims 提取当前 Token 的声明（注销时使用）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(CtxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}
