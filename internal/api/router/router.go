package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"formflow/backend/config"
	"formflow/backend/internal/api/handler"
	"formflow/backend/internal/api/middleware"
	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/jwt"
	"formflow/backend/pkg/redis"
)

// 上传请求体上限：单文件上限 × 该值（multipart 额外开销按 1MB 计）
const maxFilesPerRequest = 10

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, actors middleware.ActorLoader, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// nil *redis.Client 不能直接作为接口传入
	var blacklist middleware.TokenChecker
	if rdb != nil {
		blacklist = rdb
	}

	jsonLimit := middleware.BodyLimit(1 << 20)
	uploadLimit := middleware.BodyLimit(cfg.Storage.MaxFileSize*maxFilesPerRequest + 1<<20)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", jsonLimit, middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, actors, logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户模块
			users := authorized.Group("/users", middleware.RequirePermission(workflow.PermManageRoles))
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", jsonLimit, h.User.CreateUser)
				users.POST("/import", uploadLimit, h.User.ImportUsers)
			}

			// 角色与权限模块
			authorized.GET("/permissions", h.Role.ListPermissions)
			roles := authorized.Group("/roles")
			{
				roles.GET("", h.Role.ListRoles)
				roles.POST("", jsonLimit, middleware.RequirePermission(workflow.PermManageRoles), h.Role.CreateRole)
				roles.PUT("/:id/permissions", jsonLimit, middleware.RequirePermission(workflow.PermManageRoles), h.Role.SetPermissions)
				roles.PUT("/:id/members", jsonLimit, middleware.RequirePermission(workflow.PermManageRoles), h.Role.SetMembers)
			}

			// 表单模块
			forms := authorized.Group("/forms")
			{
				forms.GET("", h.Form.ListForms)
				forms.GET("/:id", h.Form.GetForm)
				forms.POST("", jsonLimit, middleware.RequirePermission(workflow.PermManageForms), h.Form.CreateForm)
				forms.PUT("/:id", jsonLimit, middleware.RequirePermission(workflow.PermManageForms), h.Form.UpdateForm)
				forms.PUT("/:id/assignments", jsonLimit, middleware.RequirePermission(workflow.PermManageForms), h.Form.SetAssignments)
				forms.DELETE("/:id", middleware.RequirePermission(workflow.PermManageForms), h.Form.DeleteForm)

				// 提交流程（分配校验在 Service 层）
				forms.POST("/:id/submissions", uploadLimit, h.Submission.Submit)
				forms.POST("/:id/submissions/direct", uploadLimit, middleware.RequirePermission(workflow.PermDirectUpload), h.Submission.DirectUpload)
				forms.GET("/:id/rejections", h.Submission.RejectionHistory) // 本人或审核人（Service 层鉴权）
			}

			// 提交审核模块
			submissions := authorized.Group("/submissions")
			{
				submissions.GET("", middleware.RequirePermission(workflow.PermReviewSubmissions), h.Submission.ListSubmissions)
				submissions.GET("/:id", h.Submission.GetSubmission) // 本人或审核人（Service 层鉴权）
				submissions.POST("/:id/review", jsonLimit, middleware.RequirePermission(workflow.PermReviewSubmissions), h.Submission.Review)
				submissions.PUT("/:id/files", uploadLimit, middleware.RequirePermission(workflow.PermDirectUpload), h.Submission.EditCompleted)
				submissions.DELETE("/:id", middleware.RequirePermission(workflow.PermManageForms), h.Submission.DeleteSubmission)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/forms/:id", middleware.RequirePermission(workflow.PermReviewSubmissions, workflow.PermManageForms), h.Export.ExportForm)
			}
		}
	}

	return r
}
