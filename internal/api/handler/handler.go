package handler

import "formflow/backend/internal/service"

// Handler 聚合所有 HTTP 处理器
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Role         *RoleHandler
	Form         *FormHandler
	Submission   *SubmissionHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合实例
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Role:         NewRoleHandler(svc.Role),
		Form:         NewFormHandler(svc.Form),
		Submission:   NewSubmissionHandler(svc.Submission),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
