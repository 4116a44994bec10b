package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/event"
	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
	pkgerrors "formflow/backend/pkg/errors"
	"formflow/backend/pkg/storage"
)

// ── 提交流程业务错误 ──
// 状态机相关错误见 workflow 包

var (
	ErrSubmissionNotFound   = errors.New("提交记录不存在")
	ErrFormNotFound         = errors.New("表单不存在")
	ErrFormInactive         = errors.New("表单已停用，不可上传")
	ErrNoUploads            = errors.New("未上传任何文件")
	ErrDuplicateUploadField = errors.New("同一字段重复上传")
	ErrRequiredFieldMissing = errors.New("缺少必填字段的文件")
	ErrFileTypeMismatch     = errors.New("文件类型与字段要求不符")
	ErrRejectReasonRequired = errors.New("驳回时至少填写一个字段的驳回原因")
)

// directUploadNote 管理员直接上传时自动写入的审核备注
const directUploadNote = "管理员直接上传，自动通过"

// Upload 一个字段的上传文件
type Upload struct {
	FieldID  string
	FileName string
	Content  io.Reader
}

// ReviewDecision 审核决定
type ReviewDecision struct {
	Approve bool
	Notes   string
	Reasons map[string]string // field_id → 驳回原因
}

// Result 一次流程动作的结果：更新后的提交记录及其副作用记录。
// Events 在事务提交后交给 event.Publisher 异步发布。
type Result struct {
	Submission    *model.FormSubmission
	Responses     []model.SubmissionResponse
	Review        *model.SubmissionReview
	Notifications []model.Notification
	Events        []event.Event
}

func (r *Result) addNotification(n *model.Notification, ev event.Event) {
	r.Notifications = append(r.Notifications, *n)
	r.Events = append(r.Events, ev)
}

// SubmissionService 提交流程编排（状态机）接口。
// 每个动作在一个事务内完成全部写入，操作者显式传入。
type SubmissionService interface {
	// SyncAssignments 为新解析出的分配人创建 not_yet_responded 提交及分配通知
	SyncAssignments(ctx context.Context, formID string, actor workflow.Actor) ([]*Result, error)
	Submit(ctx context.Context, formID string, actor workflow.Actor, uploads []Upload) (*Result, error)
	// Review 审核；首次审核与重新提交后的审核由当前状态区分
	Review(ctx context.Context, submissionID string, actor workflow.Actor, decision ReviewDecision) (*Result, error)
	DirectUpload(ctx context.Context, formID, userID string, actor workflow.Actor, uploads []Upload) (*Result, error)
	EditCompleted(ctx context.Context, submissionID string, actor workflow.Actor, uploads []Upload) (*Result, error)
	// Delete 删除提交及其上传与审核记录；Result 仅包含被重置的分配人通知
	Delete(ctx context.Context, submissionID string, actor workflow.Actor) (*Result, error)

	ListGroupedByForm(ctx context.Context, status string) ([]dto.FormSubmissionsGroup, error)
	GetDetail(ctx context.Context, submissionID string, actor workflow.Actor) (*dto.SubmissionDetailResponse, error)
	RejectionHistory(ctx context.Context, formID, userID string, actor workflow.Actor) (*dto.RejectionHistoryResponse, error)
}

type submissionService struct {
	repo      *repository.Repository
	storage   storage.Storage
	publisher event.Publisher
	projector notificationProjector
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(
	repo *repository.Repository,
	store storage.Storage,
	publisher event.Publisher,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		repo:      repo,
		storage:   store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── SyncAssignments ──────────────────────

func (s *submissionService) SyncAssignments(ctx context.Context, formID string, actor workflow.Actor) ([]*Result, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.Status != workflow.FormActive {
		return nil, nil
	}

	assignees, err := resolveAssignees(ctx, s.repo, form)
	if err != nil {
		s.logger.Error("解析表单分配人失败", zap.String("form_id", formID), zap.Error(err))
		return nil, err
	}

	var results []*Result
	for i := range assignees {
		user := assignees[i]
		var res *Result
		err := s.inTx(ctx, func(repo *repository.Repository) error {
			var err error
			res, err = s.assignOne(ctx, repo, form, &user, actor)
			return err
		})
		switch {
		case err == nil && res != nil:
			results = append(results, res)
		case errors.Is(err, workflow.ErrDuplicateSubmission):
			// 已有提交记录（或并发同步已创建），无需处理
		case err != nil:
			s.logger.Error("创建分配提交失败",
				zap.String("form_id", formID), zap.String("user_id", user.UserID), zap.Error(err))
			return results, err
		}
	}

	for _, res := range results {
		s.publish(ctx, res.Events)
	}
	return results, nil
}

func (s *submissionService) assignOne(ctx context.Context, repo *repository.Repository, form *model.Form, user *model.User, actor workflow.Actor) (*Result, error) {
	existing, err := s.findForUpdate(ctx, repo, form.FormID, user.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	tr, err := workflow.Next(nil, workflow.TriggerAssign)
	if err != nil {
		return nil, err
	}

	sub := &model.FormSubmission{
		FormID: form.FormID,
		UserID: user.UserID,
		Status: tr.To,
	}
	sub.CreatedBy = &actor.UserID
	if err := repo.Submission.Create(ctx, sub); err != nil {
		return nil, err
	}

	res := &Result{Submission: sub, Events: []event.Event{event.SubmissionCreated(sub)}}
	n, ev, err := s.projector.upsertAssignment(ctx, repo, user.UserID, form.FormID, &sub.SubmissionID,
		workflow.AssignedNotif{FormID: form.FormID, FormTitle: form.Title}, true)
	if err != nil {
		return nil, err
	}
	res.addNotification(n, ev)
	return res, nil
}

// ────────────────────── Submit ──────────────────────

func (s *submissionService) Submit(ctx context.Context, formID string, actor workflow.Actor, uploads []Upload) (*Result, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	assignees, err := resolveAssignees(ctx, s.repo, form)
	if err != nil {
		s.logger.Error("解析表单分配人失败", zap.String("form_id", formID), zap.Error(err))
		return nil, err
	}
	if !workflow.Contains(model.UserKey, assignees, actor.UserID) {
		return nil, workflow.ErrNotAssigned
	}

	// 事务外预检查，避免为必然失败的请求写入文件
	sub, tr, err := s.checkSubmit(ctx, s.repo, form, actor.UserID, false)
	if err != nil {
		return nil, err
	}
	if err := validateUploads(form, uploads, requiredOnSubmit(sub)); err != nil {
		return nil, err
	}
	if err := s.checkRejectedCovered(ctx, s.repo, sub, uploads); err != nil {
		return nil, err
	}

	metas, err := s.storeUploads(ctx, form.FormID, actor.UserID, form, uploads)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = s.inTx(ctx, func(repo *repository.Repository) error {
		sub, tr, err = s.checkSubmit(ctx, repo, form, actor.UserID, true)
		if err != nil {
			return err
		}
		if err := s.checkRejectedCovered(ctx, repo, sub, uploads); err != nil {
			return err
		}

		now := s.now()
		if tr.Creates() {
			sub = &model.FormSubmission{
				FormID:      form.FormID,
				UserID:      actor.UserID,
				Status:      tr.To,
				SubmittedAt: &now,
			}
			sub.CreatedBy = &actor.UserID
			if err := repo.Submission.Create(ctx, sub); err != nil {
				if errors.Is(err, workflow.ErrDuplicateSubmission) {
					return workflow.ErrInvalidTransition
				}
				return err
			}
			res.Events = append(res.Events, event.SubmissionCreated(sub))
		} else {
			from := sub.Status
			sub.Status = tr.To
			sub.SubmittedAt = &now
			sub.UpdatedBy = &actor.UserID
			if err := s.casStatus(ctx, repo, sub, from); err != nil {
				return err
			}
		}
		res.Submission = sub
		res.Events = append(res.Events, event.SubmissionUpdated(sub))

		for _, m := range metas {
			resp := m.response(sub.SubmissionID, workflow.ResponsePending, actor.UserID)
			if err := repo.Response.RecordUpload(ctx, resp); err != nil {
				return err
			}
			res.Responses = append(res.Responses, *resp)
		}

		// 分配人通知：已读，回到 form_assigned（处理中）
		n, ev, err := s.projector.upsertAssignment(ctx, repo, actor.UserID, form.FormID, &sub.SubmissionID,
			workflow.AssignedNotif{FormID: form.FormID, FormTitle: form.Title, InProcess: true}, false)
		if err != nil {
			return err
		}
		res.addNotification(n, ev)

		// 审核人待办通知：每个有审核权限的用户（提交人除外）各一条
		reviewers, err := repo.User.ListWithPermission(ctx, workflow.PermReviewSubmissions)
		if err != nil {
			return err
		}
		pending := workflow.ReviewPendingNotif{
			FormID:        form.FormID,
			FormTitle:     form.Title,
			SubmissionID:  sub.SubmissionID,
			SubmitterID:   actor.UserID,
			SubmitterName: actor.Name,
			Resubmission:  tr.To == workflow.StatusRejectedResponded,
		}
		for _, r := range reviewers {
			if r.UserID == actor.UserID {
				continue
			}
			n, ev, err := s.projector.createReviewerPending(ctx, repo, r.UserID, pending)
			if err != nil {
				return err
			}
			res.addNotification(n, ev)
		}
		return nil
	})
	if err != nil {
		s.discardFiles(metas)
		return nil, s.logInfra(err, "提交表单失败", zap.String("form_id", formID), zap.String("user_id", actor.UserID))
	}

	s.publish(ctx, res.Events)
	return res, nil
}

// checkSubmit 校验分配人当前是否可以（重新）上传，返回现有提交与目标迁移
func (s *submissionService) checkSubmit(ctx context.Context, repo *repository.Repository, form *model.Form, userID string, lock bool) (*model.FormSubmission, workflow.Transition, error) {
	var (
		sub *model.FormSubmission
		err error
	)
	if lock {
		sub, err = s.findForUpdate(ctx, repo, form.FormID, userID)
	} else {
		sub, err = repo.Submission.GetByFormAndUser(ctx, form.FormID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub, err = nil, nil
		}
	}
	if err != nil {
		return nil, workflow.Transition{}, err
	}

	// 分配人通知缺失时（例如角色成员刚变动、尚未同步）按 form_assigned 处理
	notifType := workflow.NotifFormAssigned
	notif, err := repo.Notification.GetAssignment(ctx, userID, form.FormID)
	switch {
	case err == nil:
		notifType = notif.Type
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, workflow.Transition{}, err
	}

	if !workflow.CanFill(notifType, sub.StatusPtr()) {
		if sub != nil && sub.Status == workflow.StatusCompleted {
			return nil, workflow.Transition{}, workflow.ErrAlreadyCompleted
		}
		return nil, workflow.Transition{}, workflow.ErrInvalidTransition
	}

	tr, err := workflow.Next(sub.StatusPtr(), workflow.TriggerSubmit)
	if err != nil {
		return nil, workflow.Transition{}, err
	}
	return sub, tr, nil
}

// requiredOnSubmit 首次提交需覆盖全部必填字段；驳回后重新提交只需上传被驳回的字段
func requiredOnSubmit(sub *model.FormSubmission) bool {
	return sub == nil || sub.Status == workflow.StatusNotYetResponded
}

// checkRejectedCovered 当前处于驳回状态的字段必须在本次上传中重新提供，
// 否则通过审核时未替换的驳回文件会被一并批准
func (s *submissionService) checkRejectedCovered(ctx context.Context, repo *repository.Repository, sub *model.FormSubmission, uploads []Upload) error {
	if sub == nil {
		return nil
	}
	current, err := repo.Response.ListCurrent(ctx, sub.SubmissionID)
	if err != nil {
		return err
	}
	return requireRejectedUploaded(current, uploads)
}

func requireRejectedUploaded(current []model.SubmissionResponse, uploads []Upload) error {
	uploaded := make(map[string]bool, len(uploads))
	for _, u := range uploads {
		uploaded[u.FieldID] = true
	}
	for _, r := range current {
		if r.Status == workflow.ResponseRejected && !uploaded[r.FieldID] {
			return ErrRequiredFieldMissing
		}
	}
	return nil
}

// ────────────────────── Review ──────────────────────

func (s *submissionService) Review(ctx context.Context, submissionID string, actor workflow.Actor, decision ReviewDecision) (*Result, error) {
	if !actor.Can(workflow.PermReviewSubmissions) {
		return nil, ErrNoPermission
	}

	reasons := cleanReasons(decision.Reasons)
	trigger := workflow.TriggerApprove
	if !decision.Approve {
		trigger = workflow.TriggerReject
		if len(reasons) == 0 {
			return nil, ErrRejectReasonRequired
		}
	}

	res := &Result{}
	err := s.inTx(ctx, func(repo *repository.Repository) error {
		sub, err := repo.Submission.GetByIDForUpdate(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		tr, err := workflow.Next(sub.StatusPtr(), trigger)
		if err != nil {
			return err
		}

		form, err := repo.Form.GetByID(ctx, sub.FormID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}
		for fieldID := range reasons {
			if _, ok := form.FieldByID(fieldID); !ok {
				return workflow.ErrMissingField
			}
		}

		now := s.now()
		from := sub.Status
		sub.Status = tr.To
		sub.ReviewedAt = &now
		sub.UpdatedBy = &actor.UserID
		if err := s.casStatus(ctx, repo, sub, from); err != nil {
			return err
		}
		res.Submission = sub
		res.Events = append(res.Events, event.SubmissionUpdated(sub))

		if decision.Approve {
			err = repo.Response.ApproveAll(ctx, sub.SubmissionID)
		} else {
			_, err = repo.Response.RejectWithReasons(ctx, sub.SubmissionID, reasons)
		}
		if err != nil {
			return err
		}
		if res.Responses, err = repo.Response.ListCurrent(ctx, sub.SubmissionID); err != nil {
			return err
		}

		review := &model.SubmissionReview{
			SubmissionID:     sub.SubmissionID,
			ReviewerID:       actor.UserID,
			Action:           tr.Action,
			Notes:            strings.TrimSpace(decision.Notes),
			RejectionReasons: datatypes.NewJSONType(reasons),
			ReviewedAt:       now,
		}
		if err := repo.Review.Create(ctx, review); err != nil {
			return err
		}
		res.Review = review

		consumed, events, err := s.projector.markPendingRead(ctx, repo, sub.SubmissionID)
		if err != nil {
			return err
		}
		res.Notifications = append(res.Notifications, consumed...)
		res.Events = append(res.Events, events...)

		var payload workflow.NotificationPayload
		if decision.Approve {
			payload = workflow.CompletedNotif{FormID: form.FormID, FormTitle: form.Title, SubmissionID: sub.SubmissionID}
		} else {
			payload = workflow.RejectedNotif{
				FormID:       form.FormID,
				FormTitle:    form.Title,
				SubmissionID: sub.SubmissionID,
				Reasons:      reasons,
				Again:        tr.Action == workflow.ActionReRejected,
			}
		}
		n, ev, err := s.projector.upsertAssignment(ctx, repo, sub.UserID, form.FormID, &sub.SubmissionID, payload, true)
		if err != nil {
			return err
		}
		res.addNotification(n, ev)
		return nil
	})
	if err != nil {
		return nil, s.logInfra(err, "审核提交失败", zap.String("submission_id", submissionID))
	}

	s.publish(ctx, res.Events)
	return res, nil
}

// cleanReasons 去除空白原因
func cleanReasons(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for fieldID, reason := range in {
		if r := strings.TrimSpace(reason); r != "" {
			out[fieldID] = r
		}
	}
	return out
}

// ────────────────────── DirectUpload ──────────────────────

func (s *submissionService) DirectUpload(ctx context.Context, formID, userID string, actor workflow.Actor, uploads []Upload) (*Result, error) {
	if !actor.Can(workflow.PermDirectUpload) {
		return nil, ErrNoPermission
	}

	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.Status != workflow.FormActive {
		return nil, ErrFormInactive
	}

	assignees, err := resolveAssignees(ctx, s.repo, form)
	if err != nil {
		s.logger.Error("解析表单分配人失败", zap.String("form_id", formID), zap.Error(err))
		return nil, err
	}
	if !workflow.Contains(model.UserKey, assignees, userID) {
		return nil, workflow.ErrNotAssigned
	}

	sub, err := s.repo.Submission.GetByFormAndUser(ctx, formID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := workflow.Next(sub.StatusPtr(), workflow.TriggerDirectUpload); err != nil {
		return nil, err
	}
	covered := map[string]bool{}
	if sub != nil {
		current, err := s.repo.Response.ListCurrent(ctx, sub.SubmissionID)
		if err != nil {
			return nil, err
		}
		for _, r := range current {
			// 被驳回的文件不算已覆盖，必须由本次上传替换
			if r.Status != workflow.ResponseRejected {
				covered[r.FieldID] = true
			}
		}
		if err := requireRejectedUploaded(current, uploads); err != nil {
			return nil, err
		}
	}
	if err := validateUploadsCovering(form, uploads, covered); err != nil {
		return nil, err
	}

	metas, err := s.storeUploads(ctx, formID, userID, form, uploads)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = s.inTx(ctx, func(repo *repository.Repository) error {
		sub, err := s.findForUpdate(ctx, repo, formID, userID)
		if err != nil {
			return err
		}
		tr, err := workflow.Next(sub.StatusPtr(), workflow.TriggerDirectUpload)
		if err != nil {
			return err
		}
		if err := s.checkRejectedCovered(ctx, repo, sub, uploads); err != nil {
			return err
		}

		now := s.now()
		if tr.Creates() {
			sub = &model.FormSubmission{
				FormID:      formID,
				UserID:      userID,
				Status:      tr.To,
				SubmittedAt: &now,
				ReviewedAt:  &now,
			}
			sub.CreatedBy = &actor.UserID
			if err := repo.Submission.Create(ctx, sub); err != nil {
				if errors.Is(err, workflow.ErrDuplicateSubmission) {
					return workflow.ErrInvalidTransition
				}
				return err
			}
			res.Events = append(res.Events, event.SubmissionCreated(sub))
		} else {
			from := sub.Status
			sub.Status = tr.To
			if sub.SubmittedAt == nil {
				sub.SubmittedAt = &now
			}
			sub.ReviewedAt = &now
			sub.UpdatedBy = &actor.UserID
			if err := s.casStatus(ctx, repo, sub, from); err != nil {
				return err
			}
			res.Events = append(res.Events, event.SubmissionUpdated(sub))
		}
		res.Submission = sub

		for _, m := range metas {
			resp := m.response(sub.SubmissionID, workflow.ResponseApproved, actor.UserID)
			if err := repo.Response.RecordUpload(ctx, resp); err != nil {
				return err
			}
		}
		// 未重新上传的字段沿用当前行，一并通过
		if err := repo.Response.ApproveAll(ctx, sub.SubmissionID); err != nil {
			return err
		}
		if res.Responses, err = repo.Response.ListCurrent(ctx, sub.SubmissionID); err != nil {
			return err
		}

		review := &model.SubmissionReview{
			SubmissionID:     sub.SubmissionID,
			ReviewerID:       actor.UserID,
			Action:           tr.Action,
			Notes:            directUploadNote,
			RejectionReasons: datatypes.NewJSONType(map[string]string{}),
			ReviewedAt:       now,
		}
		if err := repo.Review.Create(ctx, review); err != nil {
			return err
		}
		res.Review = review

		consumed, events, err := s.projector.markPendingRead(ctx, repo, sub.SubmissionID)
		if err != nil {
			return err
		}
		res.Notifications = append(res.Notifications, consumed...)
		res.Events = append(res.Events, events...)

		n, ev, err := s.projector.upsertAssignment(ctx, repo, userID, formID, &sub.SubmissionID,
			workflow.CompletedNotif{FormID: formID, FormTitle: form.Title, SubmissionID: sub.SubmissionID, Direct: true}, true)
		if err != nil {
			return err
		}
		res.addNotification(n, ev)
		return nil
	})
	if err != nil {
		s.discardFiles(metas)
		return nil, s.logInfra(err, "直接上传失败", zap.String("form_id", formID), zap.String("user_id", userID))
	}

	s.publish(ctx, res.Events)
	return res, nil
}

// ────────────────────── EditCompleted ──────────────────────

func (s *submissionService) EditCompleted(ctx context.Context, submissionID string, actor workflow.Actor, uploads []Upload) (*Result, error) {
	if !actor.Can(workflow.PermDirectUpload) {
		return nil, ErrNoPermission
	}

	sub, err := s.repo.Submission.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if _, err := workflow.Next(sub.StatusPtr(), workflow.TriggerEdit); err != nil {
		return nil, err
	}
	form, err := s.loadForm(ctx, sub.FormID)
	if err != nil {
		return nil, err
	}
	if err := validateUploads(form, uploads, false); err != nil {
		return nil, err
	}

	metas, err := s.storeUploads(ctx, sub.FormID, sub.UserID, form, uploads)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var replaced []string
	err = s.inTx(ctx, func(repo *repository.Repository) error {
		sub, err := repo.Submission.GetByIDForUpdate(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		tr, err := workflow.Next(sub.StatusPtr(), workflow.TriggerEdit)
		if err != nil {
			return err
		}

		// 状态不变，仅递增版本号以串行化并发编辑
		sub.UpdatedBy = &actor.UserID
		if err := s.casStatus(ctx, repo, sub, sub.Status); err != nil {
			return err
		}
		res.Submission = sub
		res.Events = append(res.Events, event.SubmissionUpdated(sub))

		current, err := repo.Response.ListCurrent(ctx, sub.SubmissionID)
		if err != nil {
			return err
		}
		approved := make(map[string]model.SubmissionResponse, len(current))
		for _, r := range current {
			if r.Status == workflow.ResponseApproved {
				approved[r.FieldID] = r
			}
		}

		for _, m := range metas {
			resp := m.response(sub.SubmissionID, workflow.ResponseApproved, actor.UserID)
			if old, ok := approved[m.fieldID]; ok {
				if err := repo.Response.ReplaceFile(ctx, old.ResponseID, resp); err != nil {
					return err
				}
				replaced = append(replaced, old.FilePath)
				continue
			}
			// 字段此前没有通过的文件（如选填字段），追加一条已通过记录
			if err := repo.Response.RecordUpload(ctx, resp); err != nil {
				return err
			}
		}
		if res.Responses, err = repo.Response.ListCurrent(ctx, sub.SubmissionID); err != nil {
			return err
		}

		review := &model.SubmissionReview{
			SubmissionID:     sub.SubmissionID,
			ReviewerID:       actor.UserID,
			Action:           tr.Action,
			Notes:            fmt.Sprintf("管理员替换了 %d 个文件", len(metas)),
			RejectionReasons: datatypes.NewJSONType(map[string]string{}),
			ReviewedAt:       s.now(),
		}
		if err := repo.Review.Create(ctx, review); err != nil {
			return err
		}
		res.Review = review
		return nil
	})
	if err != nil {
		s.discardFiles(metas)
		return nil, s.logInfra(err, "编辑已完成提交失败", zap.String("submission_id", submissionID))
	}

	s.removeFiles(replaced)
	s.publish(ctx, res.Events)
	return res, nil
}

// ────────────────────── Delete ──────────────────────

func (s *submissionService) Delete(ctx context.Context, submissionID string, actor workflow.Actor) (*Result, error) {
	if !actor.Can(workflow.PermManageForms) {
		return nil, ErrNoPermission
	}

	res := &Result{}
	var files []string
	err := s.inTx(ctx, func(repo *repository.Repository) error {
		sub, err := repo.Submission.GetByIDForUpdate(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		all, err := repo.Response.ListBySubmission(ctx, sub.SubmissionID)
		if err != nil {
			return err
		}
		for _, r := range all {
			files = append(files, r.FilePath)
		}

		if err := repo.Notification.DeleteReviewerPendingBySubmission(ctx, sub.SubmissionID); err != nil {
			return err
		}
		if err := repo.Submission.Delete(ctx, sub.SubmissionID); err != nil {
			return err
		}
		res.Events = append(res.Events, event.SubmissionDeleted(sub.SubmissionID))

		// 仍在分配范围内的用户回到待填写状态
		form, err := repo.Form.GetByID(ctx, sub.FormID)
		if err != nil {
			return err
		}
		assignees, err := resolveAssignees(ctx, repo, form)
		if err != nil {
			return err
		}
		if workflow.Contains(model.UserKey, assignees, sub.UserID) {
			n, ev, err := s.projector.upsertAssignment(ctx, repo, sub.UserID, form.FormID, nil,
				workflow.AssignedNotif{FormID: form.FormID, FormTitle: form.Title}, true)
			if err != nil {
				return err
			}
			res.addNotification(n, ev)
		}
		return nil
	})
	if err != nil {
		return nil, s.logInfra(err, "删除提交失败", zap.String("submission_id", submissionID))
	}

	s.removeFiles(files)
	s.publish(ctx, res.Events)
	return res, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *submissionService) ListGroupedByForm(ctx context.Context, status string) ([]dto.FormSubmissionsGroup, error) {
	forms, err := s.repo.Form.List(ctx, status)
	if err != nil {
		s.logger.Error("查询表单列表失败", zap.Error(err))
		return nil, err
	}

	groups := make([]dto.FormSubmissionsGroup, 0, len(forms))
	for _, f := range forms {
		subs, err := s.repo.Submission.ListByForm(ctx, f.FormID)
		if err != nil {
			s.logger.Error("查询表单提交失败", zap.String("form_id", f.FormID), zap.Error(err))
			return nil, err
		}
		g := dto.FormSubmissionsGroup{
			FormID:      f.FormID,
			FormTitle:   f.Title,
			FormStatus:  string(f.Status),
			Counts:      make(map[string]int),
			Submissions: make([]dto.SubmissionResponse, 0, len(subs)),
		}
		for i := range subs {
			g.Counts[string(subs[i].Status)]++
			g.Submissions = append(g.Submissions, toSubmissionResponse(&subs[i]))
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *submissionService) GetDetail(ctx context.Context, submissionID string, actor workflow.Actor) (*dto.SubmissionDetailResponse, error) {
	sub, err := s.repo.Submission.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交失败", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	if sub.UserID != actor.UserID && !actor.Can(workflow.PermReviewSubmissions) {
		return nil, ErrNoPermission
	}

	history, err := s.repo.Response.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	approved, err := s.repo.Response.LatestApprovedByField(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.Review.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	detail := &dto.SubmissionDetailResponse{
		Submission: toSubmissionResponse(sub),
		Current:    make([]dto.UploadResponse, 0),
		Approved:   toUploadResponses(approved),
		History:    toUploadResponses(history),
		Reviews:    make([]dto.ReviewResponse, 0, len(reviews)),
	}
	for _, r := range history {
		if r.Status != workflow.ResponseResubmitted {
			detail.Current = append(detail.Current, toUploadResponse(&r))
		}
	}
	for i := range reviews {
		detail.Reviews = append(detail.Reviews, toReviewResponse(&reviews[i]))
	}
	return detail, nil
}

func (s *submissionService) RejectionHistory(ctx context.Context, formID, userID string, actor workflow.Actor) (*dto.RejectionHistoryResponse, error) {
	if userID != actor.UserID && !actor.Can(workflow.PermReviewSubmissions) {
		return nil, ErrNoPermission
	}

	sub, err := s.repo.Submission.GetByFormAndUser(ctx, formID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	rejected, err := s.repo.Response.LatestRejectedByField(ctx, sub.SubmissionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.RejectionHistoryResponse{
		SubmissionID: sub.SubmissionID,
		Status:       string(sub.Status),
		Fields:       toUploadResponses(rejected),
	}

	latest, err := s.repo.Review.Latest(ctx, sub.SubmissionID)
	switch {
	case err == nil:
		resp.LatestAction = string(latest.Action)
		resp.LatestNotes = latest.Notes
		reviewedAt := latest.ReviewedAt
		resp.LatestReviewAt = &reviewedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *submissionService) loadForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.repo.Form.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		s.logger.Error("查询表单失败", zap.String("form_id", formID), zap.Error(err))
		return nil, err
	}
	return form, nil
}

// findForUpdate 加锁读取 (form, user) 的提交，不存在时返回 nil
func (s *submissionService) findForUpdate(ctx context.Context, repo *repository.Repository, formID, userID string) (*model.FormSubmission, error) {
	sub, err := repo.Submission.GetByFormAndUserForUpdate(ctx, formID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sub, err
}

// casStatus 比较并交换提交状态；并发动作已改变状态时视为非法迁移
func (s *submissionService) casStatus(ctx context.Context, repo *repository.Repository, sub *model.FormSubmission, from workflow.SubmissionStatus) error {
	err := repo.Submission.UpdateStatus(ctx, sub, from)
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return workflow.ErrInvalidTransition
	}
	return err
}

// inTx 在事务中执行 fn；mock 聚合下 tx 为 nil，直接执行
func (s *submissionService) inTx(ctx context.Context, fn func(repo *repository.Repository) error) error {
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

	if err := fn(s.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return err
		}
	}
	return nil
}

// publish 事务提交后发布事件；失败只记录日志
func (s *submissionService) publish(ctx context.Context, events []event.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("发布领域事件失败", zap.Int("events", len(events)), zap.Error(err))
	}
}

// logInfra 记录基础设施错误并原样返回；领域错误不记录
func (s *submissionService) logInfra(err error, msg string, fields ...zap.Field) error {
	if isDomainError(err) {
		return err
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return err
}

func isDomainError(err error) bool {
	for _, target := range []error{
		workflow.ErrInvalidTransition, workflow.ErrAlreadyCompleted, workflow.ErrNotAssigned,
		workflow.ErrDuplicateSubmission, workflow.ErrMissingField, workflow.ErrStorageFailure,
		ErrSubmissionNotFound, ErrFormNotFound, ErrNoPermission,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ── 文件处理 ──

// storedFile 已写入存储、尚未入库的文件
type storedFile struct {
	fieldID string
	meta    *storage.FileMeta
}

func (f storedFile) response(submissionID string, status workflow.ResponseStatus, actorID string) *model.SubmissionResponse {
	resp := &model.SubmissionResponse{
		SubmissionID: submissionID,
		FieldID:      f.fieldID,
		FilePath:     f.meta.Path,
		OriginalName: f.meta.OriginalName,
		MimeType:     f.meta.MimeType,
		FileSize:     f.meta.Size,
		Status:       status,
	}
	resp.CreatedBy = &actorID
	resp.UpdatedBy = &actorID
	return resp
}

// validateUploads 校验字段归属与重复；requireAll 为 true 时必须覆盖全部必填字段
func validateUploads(form *model.Form, uploads []Upload, requireAll bool) error {
	if !requireAll {
		return validateUploadsCovering(form, uploads, nil)
	}
	return validateUploadsCovering(form, uploads, map[string]bool{})
}

// validateUploadsCovering covered 为 nil 时不检查必填；否则上传与 covered 合起来需覆盖全部必填字段
func validateUploadsCovering(form *model.Form, uploads []Upload, covered map[string]bool) error {
	if len(uploads) == 0 {
		return ErrNoUploads
	}
	seen := make(map[string]bool, len(uploads))
	for _, u := range uploads {
		if _, ok := form.FieldByID(u.FieldID); !ok {
			return workflow.ErrMissingField
		}
		if seen[u.FieldID] {
			return ErrDuplicateUploadField
		}
		seen[u.FieldID] = true
	}
	if covered == nil {
		return nil
	}
	for _, f := range form.Fields {
		if f.Required && !seen[f.FieldID] && !covered[f.FieldID] {
			return ErrRequiredFieldMissing
		}
	}
	return nil
}

// storeUploads 写入存储并校验嗅探出的文件类型；任一失败则清理已写入的文件
func (s *submissionService) storeUploads(ctx context.Context, formID, userID string, form *model.Form, uploads []Upload) ([]storedFile, error) {
	dir := path.Join("forms", formID, userID)
	stored := make([]storedFile, 0, len(uploads))
	for _, u := range uploads {
		field, _ := form.FieldByID(u.FieldID)

		meta, err := s.storage.Save(ctx, dir, u.FileName, u.Content)
		if err != nil {
			s.discardFiles(stored)
			if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrEmptyFile) {
				return nil, err
			}
			s.logger.Error("保存上传文件失败", zap.String("field_id", u.FieldID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", workflow.ErrStorageFailure, err)
		}
		stored = append(stored, storedFile{fieldID: u.FieldID, meta: meta})

		if !field.Type.Accepts(meta.MimeType) {
			s.discardFiles(stored)
			return nil, fmt.Errorf("%w: 字段「%s」要求 %s，实际为 %s", ErrFileTypeMismatch, field.Label, field.Type, meta.MimeType)
		}
	}
	return stored, nil
}

// discardFiles 删除未能入库的文件
func (s *submissionService) discardFiles(files []storedFile) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.meta.Path)
	}
	s.removeFiles(paths)
}

func (s *submissionService) removeFiles(paths []string) {
	for _, p := range paths {
		if err := s.storage.Remove(p); err != nil {
			s.logger.Warn("删除文件失败", zap.String("path", p), zap.Error(err))
		}
	}
}
