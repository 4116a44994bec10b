package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/service"
	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/response"
	"formflow/backend/pkg/storage"
)

// SubmissionHandler 提交流程 HTTP 处理器
type SubmissionHandler struct {
	submissionSvc service.SubmissionService
}

// NewSubmissionHandler 创建 SubmissionHandler
func NewSubmissionHandler(submissionSvc service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc}
}

// Submit 分配人提交或重新提交文件
// POST /api/v1/forms/:id/submissions  (multipart，文件字段名为 field_id)
func (h *SubmissionHandler) Submit(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	uploads, closeAll, err := collectUploads(c)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 21003, "上传文件无效", err.Error())
		return
	}
	defer closeAll()

	result, err := h.submissionSvc.Submit(c.Request.Context(), c.Param("id"), actor, uploads)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result.ToResponse())
}

// DirectUpload 管理员代为上传并直接完成
// POST /api/v1/forms/:id/submissions/direct  (multipart，user_id + 文件)
func (h *SubmissionHandler) DirectUpload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	uploads, closeAll, err := collectUploads(c)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 21003, "上传文件无效", err.Error())
		return
	}
	defer closeAll()

	userID := c.PostForm("user_id")
	if userID == "" {
		response.BadRequest(c, 10001, "user_id 不能为空")
		return
	}

	result, err := h.submissionSvc.DirectUpload(c.Request.Context(), c.Param("id"), userID, actor, uploads)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result.ToResponse())
}

// Review 审核通过或驳回
// POST /api/v1/submissions/:id/review
func (h *SubmissionHandler) Review(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	decision := service.ReviewDecision{
		Approve: req.Decision == "approve",
		Notes:   req.Notes,
		Reasons: req.Reasons,
	}
	result, err := h.submissionSvc.Review(c.Request.Context(), c.Param("id"), actor, decision)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result.ToResponse())
}

// EditCompleted 管理员替换已完成提交中的文件
// PUT /api/v1/submissions/:id/files
func (h *SubmissionHandler) EditCompleted(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	uploads, closeAll, err := collectUploads(c)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 21003, "上传文件无效", err.Error())
		return
	}
	defer closeAll()

	result, err := h.submissionSvc.EditCompleted(c.Request.Context(), c.Param("id"), actor, uploads)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result.ToResponse())
}

// DeleteSubmission 删除提交，分配通知重置为待填写
// DELETE /api/v1/submissions/:id
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.submissionSvc.Delete(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result.ToResponse())
}

// ListSubmissions 按表单分组的提交列表（审核视图）
// GET /api/v1/submissions?form_status=active
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	status := c.Query("form_status")
	if status != "" && status != string(workflow.FormActive) && status != string(workflow.FormInactive) {
		response.BadRequest(c, 10001, "form_status 无效")
		return
	}

	groups, err := h.submissionSvc.ListGroupedByForm(c.Request.Context(), status)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": groups})
}

// GetSubmission 提交详情（本人或审核人）
// GET /api/v1/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	detail, err := h.submissionSvc.GetDetail(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, detail)
}

// RejectionHistory 驳回历史；user_id 缺省为当前用户
// GET /api/v1/forms/:id/rejections?user_id=xxx
func (h *SubmissionHandler) RejectionHistory(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	userID := c.DefaultQuery("user_id", actor.UserID)

	history, err := h.submissionSvc.RejectionHistory(c.Request.Context(), c.Param("id"), userID, actor)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, history)
}

// collectUploads 读取 multipart 中的文件，每个表单字段 ID 对应一个文件
func collectUploads(c *gin.Context) ([]service.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, fmt.Errorf("解析 multipart 失败: %w", err)
	}

	fieldIDs := make([]string, 0, len(form.File))
	for fieldID := range form.File {
		fieldIDs = append(fieldIDs, fieldID)
	}
	sort.Strings(fieldIDs)

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]service.Upload, 0, len(fieldIDs))
	for _, fieldID := range fieldIDs {
		headers := form.File[fieldID]
		if len(headers) != 1 {
			closeAll()
			return nil, func() {}, fmt.Errorf("字段 %s 只能上传一个文件", fieldID)
		}
		f, err := headers[0].Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("读取字段 %s 的文件失败: %w", fieldID, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{
			FieldID:  fieldID,
			FileName: headers[0].Filename,
			Content:  f,
		})
	}
	return uploads, closeAll, nil
}

func handleSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, 21001, "提交记录不存在")
	case errors.Is(err, service.ErrFormNotFound):
		response.NotFound(c, 20001, "表单不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrFormInactive):
		response.Conflict(c, 21002, "表单已停用，不可上传")
	case errors.Is(err, service.ErrNoUploads):
		response.BadRequest(c, 21004, "未上传任何文件")
	case errors.Is(err, service.ErrDuplicateUploadField):
		response.BadRequest(c, 21005, "同一字段重复上传")
	case errors.Is(err, service.ErrRequiredFieldMissing):
		response.BadRequest(c, 21006, "缺少必填字段的文件")
	case errors.Is(err, service.ErrFileTypeMismatch):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21007, "文件类型与字段要求不符", err.Error())
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 21008, "驳回时至少填写一个字段的驳回原因")
	case errors.Is(err, workflow.ErrMissingField):
		response.BadRequest(c, 21009, "上传字段不属于该表单")
	case errors.Is(err, storage.ErrFileTooLarge):
		response.TooLarge(c, 21010, "文件超过大小限制")
	case errors.Is(err, storage.ErrEmptyFile):
		response.BadRequest(c, 21011, "文件内容为空")
	case errors.Is(err, workflow.ErrInvalidTransition):
		response.Conflict(c, 21012, "该表单当前不可执行此操作")
	case errors.Is(err, workflow.ErrAlreadyCompleted):
		response.Conflict(c, 21013, "该提交已完成，不可再执行此操作")
	case errors.Is(err, workflow.ErrDuplicateSubmission):
		response.Conflict(c, 21014, "该用户在此表单下已存在提交记录")
	case errors.Is(err, workflow.ErrNotAssigned):
		response.Forbidden(c, 21015, "未被分配该表单")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权操作")
	case errors.Is(err, workflow.ErrStorageFailure):
		response.Error(c, http.StatusInternalServerError, 21016, "文件存储失败")
	default:
		response.InternalError(c)
	}
}
