package service

import (
	"context"
	"encoding/json"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
)

// resolveAssignees 解析表单当前的分配人：直接分配用户 + 各角色成员，停用用户不计入。
// form 需预加载 Roles 与 Users。
func resolveAssignees(ctx context.Context, repo *repository.Repository, form *model.Form) ([]model.User, error) {
	byRole := make([][]model.User, 0, len(form.Roles))
	for _, r := range form.Roles {
		members, err := repo.User.ListByRole(ctx, r.RoleID)
		if err != nil {
			return nil, err
		}
		byRole = append(byRole, members)
	}
	activeKey := func(u model.User) string {
		if !u.IsActive {
			return ""
		}
		return u.UserID
	}
	return workflow.ResolveAssignees(activeKey, form.Users, byRole...), nil
}

// ── model → dto 转换 ──

func toUserResponse(user *model.User) *dto.UserResponse {
	roles := make([]dto.RoleBrief, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, dto.RoleBrief{ID: r.RoleID, Name: r.Name})
	}
	perms := user.PermissionNames()
	if perms == nil {
		perms = []string{}
	}
	return &dto.UserResponse{
		ID:          user.UserID,
		Name:        user.Name,
		Email:       user.Email,
		IsActive:    user.IsActive,
		Roles:       roles,
		Permissions: perms,
	}
}

func toRoleResponse(role *model.Role) dto.RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, p.Name)
	}
	return dto.RoleResponse{
		ID:          role.RoleID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
	}
}

func toFormResponse(form *model.Form) *dto.FormResponse {
	resp := &dto.FormResponse{
		ID:          form.FormID,
		Title:       form.Title,
		Description: form.Description,
		Status:      string(form.Status),
		CreatorID:   form.CreatorID,
		Fields:      make([]dto.FormFieldResponse, 0, len(form.Fields)),
		RoleIDs:     make([]string, 0, len(form.Roles)),
		UserIDs:     make([]string, 0, len(form.Users)),
		CreatedAt:   form.CreatedAt,
	}
	for _, f := range form.Fields {
		resp.Fields = append(resp.Fields, dto.FormFieldResponse{
			ID:        f.FieldID,
			Label:     f.Label,
			Type:      string(f.Type),
			SortOrder: f.SortOrder,
			Required:  f.Required,
		})
	}
	for _, r := range form.Roles {
		resp.RoleIDs = append(resp.RoleIDs, r.RoleID)
	}
	for _, u := range form.Users {
		resp.UserIDs = append(resp.UserIDs, u.UserID)
	}
	return resp
}

func toSubmissionResponse(sub *model.FormSubmission) dto.SubmissionResponse {
	resp := dto.SubmissionResponse{
		ID:            sub.SubmissionID,
		FormID:        sub.FormID,
		UserID:        sub.UserID,
		Status:        string(sub.Status),
		DisplayStatus: string(workflow.ExpectedDisplay(sub.Status)),
		SubmittedAt:   sub.SubmittedAt,
		ReviewedAt:    sub.ReviewedAt,
		Version:       sub.Version,
	}
	if sub.User != nil {
		resp.UserName = sub.User.Name
	}
	return resp
}

func toUploadResponse(r *model.SubmissionResponse) dto.UploadResponse {
	return dto.UploadResponse{
		ID:              r.ResponseID,
		FieldID:         r.FieldID,
		OriginalName:    r.OriginalName,
		MimeType:        r.MimeType,
		FileSize:        r.FileSize,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
	}
}

func toUploadResponses(rows []model.SubmissionResponse) []dto.UploadResponse {
	out := make([]dto.UploadResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toUploadResponse(&rows[i]))
	}
	return out
}

func toReviewResponse(r *model.SubmissionReview) dto.ReviewResponse {
	resp := dto.ReviewResponse{
		ID:               r.ReviewID,
		ReviewerID:       r.ReviewerID,
		Action:           string(r.Action),
		Notes:            r.Notes,
		RejectionReasons: r.Reasons(),
		ReviewedAt:       r.ReviewedAt,
	}
	if r.Reviewer != nil {
		resp.ReviewerName = r.Reviewer.Name
	}
	return resp
}

// toNotificationResponse sub 为通知关联的提交（可能为 nil），用于推导展示状态
func toNotificationResponse(n *model.Notification, sub *model.FormSubmission) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:            n.NotificationID,
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		Status:        string(n.Status),
		FormID:        n.FormID,
		SubmissionID:  n.SubmissionID,
		SubmitterID:   n.SubmitterID,
		DisplayStatus: string(workflow.DeriveStatus(n.Type, sub.StatusPtr())),
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
	// 审核人待办通知不提供填写入口
	if n.Type.IsAssignment() {
		resp.CanFill = workflow.CanFill(n.Type, sub.StatusPtr())
	}
	if len(n.Data) > 0 {
		resp.Data = json.RawMessage(n.Data)
	}
	return resp
}

// ToResponse 转换为接口响应
func (r *Result) ToResponse() *dto.WorkflowResultResponse {
	resp := &dto.WorkflowResultResponse{}
	if r.Submission != nil {
		sub := toSubmissionResponse(r.Submission)
		resp.Submission = &sub
	}
	if len(r.Responses) > 0 {
		resp.Uploads = toUploadResponses(r.Responses)
	}
	if r.Review != nil {
		review := toReviewResponse(r.Review)
		resp.Review = &review
	}
	for i := range r.Notifications {
		n := &r.Notifications[i]
		var sub *model.FormSubmission
		if n.Type.IsAssignment() || (n.SubmissionID != nil && r.Submission != nil && *n.SubmissionID == r.Submission.SubmissionID) {
			sub = r.Submission
		}
		resp.Notifications = append(resp.Notifications, toNotificationResponse(n, sub))
	}
	return resp
}
