package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
	pkgerrors "formflow/backend/pkg/errors"
)

// errMockUniqueViolation 模拟 PostgreSQL 唯一约束冲突
var errMockUniqueViolation = &pgconn.PgError{Code: "23505", Message: "mock: unique violation"}

// ── 内存数据集 ──
//
// 所有 mock repository 共享同一个 mockStore，以一把互斥锁保护，
// 读取一律返回副本，避免并发测试中共享指针。

type mockStore struct {
	mu    sync.Mutex
	seq   int
	clock time.Time

	users         map[string]*model.User
	roles         map[string]*model.Role
	permissions   []model.Permission
	members       map[string]map[string]bool // role_id → user_id 集合
	forms         map[string]*model.Form
	submissions   map[string]*model.FormSubmission
	responses     []*model.SubmissionResponse
	reviews       []*model.SubmissionReview
	notifications []*model.Notification
}

func newMockStore() *mockStore {
	perms := []model.Permission{
		{PermissionID: "perm-1", Name: workflow.PermReviewSubmissions},
		{PermissionID: "perm-2", Name: workflow.PermDirectUpload},
		{PermissionID: "perm-3", Name: workflow.PermManageForms},
		{PermissionID: "perm-4", Name: workflow.PermManageRoles},
	}
	return &mockStore{
		clock:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		users:       make(map[string]*model.User),
		roles:       make(map[string]*model.Role),
		permissions: perms,
		members:     make(map[string]map[string]bool),
		forms:       make(map[string]*model.Form),
		submissions: make(map[string]*model.FormSubmission),
	}
}

// nextID 生成带前缀的递增 ID；调用方需持有锁
func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

// tick 单调递增的时钟，保证按时间排序稳定；调用方需持有锁
func (m *mockStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// newMockRepository 基于 mockStore 构造 Repository 聚合（db 为 nil，事务退化为直接执行）
func newMockRepository(store *mockStore) *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{store},
		Role:         &mockRoleRepo{store},
		Form:         &mockFormRepo{store},
		Submission:   &mockSubmissionRepo{store},
		Response:     &mockResponseRepo{store},
		Review:       &mockReviewRepo{store},
		Notification: &mockNotificationRepo{store},
	}
}

// userWithRoles 复制用户并填充角色与权限；调用方需持有锁
func (m *mockStore) userWithRoles(u *model.User) model.User {
	cp := *u
	cp.Roles = nil
	ids := make([]string, 0, len(m.roles))
	for id := range m.roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if m.members[id][u.UserID] {
			cp.Roles = append(cp.Roles, m.copyRole(m.roles[id]))
		}
	}
	return cp
}

func (m *mockStore) copyRole(r *model.Role) model.Role {
	cp := *r
	cp.Permissions = append([]model.Permission(nil), r.Permissions...)
	return cp
}

// ── Mock UserRepository ──

type mockUserRepo struct{ *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return errMockUniqueViolation
		}
	}
	if user.UserID == "" {
		user.UserID = m.nextID("user")
	}
	user.CreatedAt = m.tick()
	cp := *user
	cp.Roles = nil
	m.users[user.UserID] = &cp
	for _, r := range user.Roles {
		if m.members[r.RoleID] == nil {
			m.members[r.RoleID] = make(map[string]bool)
		}
		m.members[r.RoleID][user.UserID] = true
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.userWithRoles(u)
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := m.userWithRoles(u)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, m.userWithRoles(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, roleID string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for uid := range m.members[roleID] {
		if u, ok := m.users[uid]; ok && u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) ListWithPermission(_ context.Context, permission string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		full := m.userWithRoles(u)
		for _, p := range full.PermissionNames() {
			if p == permission {
				result = append(result, *u)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// ── Mock RoleRepository ──

type mockRoleRepo struct{ *mockStore }

func (m *mockRoleRepo) Create(_ context.Context, role *model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == role.Name {
			return errMockUniqueViolation
		}
	}
	if role.RoleID == "" {
		role.RoleID = m.nextID("role")
	}
	cp := m.copyRole(role)
	m.roles[role.RoleID] = &cp
	return nil
}

func (m *mockRoleRepo) GetByID(_ context.Context, id string) (*model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.copyRole(r)
	return &cp, nil
}

func (m *mockRoleRepo) List(_ context.Context) ([]model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Role, 0, len(m.roles))
	for _, r := range m.roles {
		result = append(result, m.copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockRoleRepo) SetPermissions(_ context.Context, roleID string, permissions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Permissions = nil
	for _, name := range permissions {
		for _, p := range m.permissions {
			if p.Name == name {
				r.Permissions = append(r.Permissions, p)
			}
		}
	}
	return nil
}

func (m *mockRoleRepo) SetMembers(_ context.Context, roleID string, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	m.members[roleID] = set
	return nil
}

func (m *mockRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Permission(nil), m.permissions...), nil
}

// ── Mock FormRepository ──

type mockFormRepo struct{ *mockStore }

// copyForm 复制表单；直接分配用户按当前用户表刷新。调用方需持有锁
func (m *mockStore) copyForm(f *model.Form) model.Form {
	cp := *f
	cp.Fields = append([]model.FormField(nil), f.Fields...)
	cp.Roles = append([]model.Role(nil), f.Roles...)
	cp.Users = make([]model.User, 0, len(f.Users))
	for _, u := range f.Users {
		if cur, ok := m.users[u.UserID]; ok {
			cp.Users = append(cp.Users, *cur)
		}
	}
	return cp
}

func (m *mockFormRepo) Create(_ context.Context, form *model.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if form.FormID == "" {
		form.FormID = m.nextID("form")
	}
	for i := range form.Fields {
		if form.Fields[i].FieldID == "" {
			form.Fields[i].FieldID = m.nextID("field")
		}
		form.Fields[i].FormID = form.FormID
	}
	form.CreatedAt = m.tick()
	cp := *form
	cp.Fields = append([]model.FormField(nil), form.Fields...)
	cp.Roles = append([]model.Role(nil), form.Roles...)
	cp.Users = append([]model.User(nil), form.Users...)
	m.forms[form.FormID] = &cp
	return nil
}

func (m *mockFormRepo) GetByID(_ context.Context, id string) (*model.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.copyForm(f)
	return &cp, nil
}

func (m *mockFormRepo) List(_ context.Context, status string) ([]model.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Form
	for _, f := range m.forms {
		if status != "" && string(f.Status) != status {
			continue
		}
		result = append(result, m.copyForm(f))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockFormRepo) Update(_ context.Context, form *model.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[form.FormID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.Title = form.Title
	f.Description = form.Description
	f.Status = form.Status
	f.UpdatedBy = form.UpdatedBy
	return nil
}

func (m *mockFormRepo) SetAssignments(_ context.Context, formID string, roleIDs, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[formID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.Roles = nil
	for _, id := range roleIDs {
		f.Roles = append(f.Roles, model.Role{RoleID: id})
	}
	f.Users = nil
	for _, id := range userIDs {
		f.Users = append(f.Users, model.User{UserID: id})
	}
	return nil
}

func (m *mockFormRepo) ListActiveByRole(_ context.Context, roleID string) ([]model.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Form
	for _, f := range m.forms {
		if f.Status != workflow.FormActive {
			continue
		}
		for _, r := range f.Roles {
			if r.RoleID == roleID {
				result = append(result, m.copyForm(f))
				break
			}
		}
	}
	return result, nil
}

func (m *mockFormRepo) Delete(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for sid, s := range m.submissions {
		if s.FormID == id {
			removed = append(removed, s.SubmissionID)
			delete(m.submissions, sid)
		}
	}
	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.FormID != id {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	delete(m.forms, id)
	return removed, nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct{ *mockStore }

// copySubmission 复制提交并预加载 User；调用方需持有锁
func (m *mockStore) copySubmission(s *model.FormSubmission) *model.FormSubmission {
	cp := *s
	cp.User = nil
	if u, ok := m.users[s.UserID]; ok {
		uc := *u
		cp.User = &uc
	}
	return &cp
}

func (m *mockSubmissionRepo) Create(_ context.Context, sub *model.FormSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.FormID == sub.FormID && s.UserID == sub.UserID {
			return workflow.ErrDuplicateSubmission
		}
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = m.nextID("sub")
	}
	sub.Version = 1
	sub.CreatedAt = m.tick()
	cp := *sub
	cp.User = nil
	m.submissions[sub.SubmissionID] = &cp
	return nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id string) (*model.FormSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.copySubmission(s), nil
}

func (m *mockSubmissionRepo) GetByFormAndUser(_ context.Context, formID, userID string) (*model.FormSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.FormID == formID && s.UserID == userID {
			return m.copySubmission(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.FormSubmission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSubmissionRepo) GetByFormAndUserForUpdate(ctx context.Context, formID, userID string) (*model.FormSubmission, error) {
	return m.GetByFormAndUser(ctx, formID, userID)
}

func (m *mockSubmissionRepo) UpdateStatus(_ context.Context, sub *model.FormSubmission, from workflow.SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[sub.SubmissionID]
	if !ok || s.Status != from || s.Version != sub.Version {
		return pkgerrors.ErrOptimisticLock
	}
	s.Status = sub.Status
	s.SubmittedAt = sub.SubmittedAt
	s.ReviewedAt = sub.ReviewedAt
	s.UpdatedBy = sub.UpdatedBy
	s.Version++
	sub.Version = s.Version
	return nil
}

func (m *mockSubmissionRepo) ListByForm(_ context.Context, formID string) ([]model.FormSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.FormSubmission
	for _, s := range m.submissions {
		if s.FormID == formID {
			result = append(result, *m.copySubmission(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockSubmissionRepo) ListByUser(_ context.Context, userID string) ([]model.FormSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.FormSubmission
	for _, s := range m.submissions {
		if s.UserID == userID {
			result = append(result, *m.copySubmission(s))
		}
	}
	return result, nil
}

func (m *mockSubmissionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resps := m.responses[:0]
	for _, r := range m.responses {
		if r.SubmissionID != id {
			resps = append(resps, r)
		}
	}
	m.responses = resps
	reviews := m.reviews[:0]
	for _, r := range m.reviews {
		if r.SubmissionID != id {
			reviews = append(reviews, r)
		}
	}
	m.reviews = reviews
	delete(m.submissions, id)
	return nil
}

// ── Mock ResponseRepository ──

type mockResponseRepo struct{ *mockStore }

func (m *mockResponseRepo) RecordUpload(_ context.Context, resp *model.SubmissionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	for _, r := range m.responses {
		if r.SubmissionID == resp.SubmissionID && r.FieldID == resp.FieldID && r.Status != workflow.ResponseResubmitted {
			r.Status = workflow.ResponseResubmitted
			r.UpdatedAt = now
		}
	}
	if resp.ResponseID == "" {
		resp.ResponseID = m.nextID("resp")
	}
	if resp.Status == "" {
		resp.Status = workflow.ResponsePending
	}
	resp.CreatedAt = now
	resp.UpdatedAt = now
	cp := *resp
	m.responses = append(m.responses, &cp)
	return nil
}

func (m *mockResponseRepo) ApproveAll(_ context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.responses {
		if r.SubmissionID == submissionID && r.Status != workflow.ResponseResubmitted {
			r.Status = workflow.ResponseApproved
			r.RejectionReason = nil
		}
	}
	return nil
}

func (m *mockResponseRepo) RejectWithReasons(_ context.Context, submissionID string, reasons map[string]string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, r := range m.responses {
		if r.SubmissionID != submissionID || r.Status == workflow.ResponseResubmitted {
			continue
		}
		reason, ok := reasons[r.FieldID]
		if !ok || reason == "" {
			continue
		}
		reason2 := reason
		r.Status = workflow.ResponseRejected
		r.RejectionReason = &reason2
		affected++
	}
	return affected, nil
}

func (m *mockResponseRepo) ReplaceFile(_ context.Context, responseID string, file *model.SubmissionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.responses {
		if r.ResponseID == responseID && r.Status == workflow.ResponseApproved {
			r.FilePath = file.FilePath
			r.OriginalName = file.OriginalName
			r.MimeType = file.MimeType
			r.FileSize = file.FileSize
			r.UpdatedBy = file.UpdatedBy
			r.UpdatedAt = m.tick()
		}
	}
	return nil
}

func (m *mockResponseRepo) filter(submissionID string, keep func(*model.SubmissionResponse) bool) []model.SubmissionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SubmissionResponse
	for _, r := range m.responses {
		if r.SubmissionID == submissionID && keep(r) {
			result = append(result, *r)
		}
	}
	return result
}

func (m *mockResponseRepo) ListBySubmission(_ context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	return m.filter(submissionID, func(*model.SubmissionResponse) bool { return true }), nil
}

func (m *mockResponseRepo) ListCurrent(_ context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	return m.filter(submissionID, func(r *model.SubmissionResponse) bool {
		return r.Status != workflow.ResponseResubmitted
	}), nil
}

// latestByField 每个字段最后一条，按 field_id 排序
func latestByField(rows []model.SubmissionResponse) []model.SubmissionResponse {
	latest := make(map[string]model.SubmissionResponse)
	for _, r := range rows {
		latest[r.FieldID] = r
	}
	result := make([]model.SubmissionResponse, 0, len(latest))
	for _, r := range latest {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FieldID < result[j].FieldID })
	return result
}

func (m *mockResponseRepo) LatestApprovedByField(_ context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	return latestByField(m.filter(submissionID, func(r *model.SubmissionResponse) bool {
		return r.Status == workflow.ResponseApproved
	})), nil
}

func (m *mockResponseRepo) LatestRejectedByField(_ context.Context, submissionID string) ([]model.SubmissionResponse, error) {
	return latestByField(m.filter(submissionID, func(r *model.SubmissionResponse) bool {
		return r.RejectionReason != nil
	})), nil
}

// ── Mock ReviewRepository ──

type mockReviewRepo struct{ *mockStore }

func (m *mockReviewRepo) Create(_ context.Context, review *model.SubmissionReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if review.ReviewID == "" {
		review.ReviewID = m.nextID("review")
	}
	// 按写入顺序区分先后，避免同一时刻的多条审核排序不稳定
	review.ReviewedAt = m.tick()
	cp := *review
	m.reviews = append(m.reviews, &cp)
	return nil
}

func (m *mockReviewRepo) ListBySubmission(_ context.Context, submissionID string) ([]model.SubmissionReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SubmissionReview
	for i := len(m.reviews) - 1; i >= 0; i-- {
		r := m.reviews[i]
		if r.SubmissionID != submissionID {
			continue
		}
		cp := *r
		if u, ok := m.users[r.ReviewerID]; ok {
			uc := *u
			cp.Reviewer = &uc
		}
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockReviewRepo) Latest(_ context.Context, submissionID string) (*model.SubmissionReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].SubmissionID == submissionID {
			cp := *m.reviews[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ *mockStore }

func (m *mockNotificationRepo) GetAssignment(_ context.Context, userID, formID string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID && n.FormID == formID && n.Type.IsAssignment() {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.NotificationID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 与部分唯一索引 uk_notification_assignment 一致
	if n.Type.IsAssignment() {
		for _, existing := range m.notifications {
			if existing.UserID == n.UserID && existing.FormID == n.FormID && existing.Type.IsAssignment() {
				return errMockUniqueViolation
			}
		}
	}
	if n.NotificationID == "" {
		n.NotificationID = m.nextID("notif")
	}
	now := m.tick()
	n.CreatedAt = now
	n.UpdatedAt = now
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *mockNotificationRepo) Update(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if existing.NotificationID == n.NotificationID {
			n.UpdatedAt = m.tick()
			existing.Type = n.Type
			existing.Title = n.Title
			existing.Message = n.Message
			existing.Status = n.Status
			existing.ReadAt = n.ReadAt
			existing.Data = n.Data
			existing.SubmissionID = n.SubmissionID
			existing.UpdatedAt = n.UpdatedAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Status != workflow.NotifUnread {
			continue
		}
		all = append(all, *n)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.NotificationID == id && n.UserID == userID {
			if n.Status == workflow.NotifUnread {
				now := m.tick()
				n.Status = workflow.NotifRead
				n.ReadAt = &now
				n.UpdatedAt = now
			}
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkPendingReadBySubmission(_ context.Context, submissionID string) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated []model.Notification
	for _, n := range m.notifications {
		if n.Type != workflow.NotifSubmissionPending || n.Status != workflow.NotifUnread {
			continue
		}
		if n.SubmissionID == nil || *n.SubmissionID != submissionID {
			continue
		}
		now := m.tick()
		n.Status = workflow.NotifRead
		n.ReadAt = &now
		n.UpdatedAt = now
		updated = append(updated, *n)
	}
	return updated, nil
}

func (m *mockNotificationRepo) DeleteReviewerPendingBySubmission(_ context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.Type == workflow.NotifSubmissionPending && n.SubmissionID != nil && *n.SubmissionID == submissionID {
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return nil
}

// ── 查询辅助（测试断言用） ──

// assignmentNotifs 返回 (user, form) 的全部分配人通知
func (m *mockStore) assignmentNotifs(userID, formID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.FormID == formID && n.Type.IsAssignment() {
			result = append(result, *n)
		}
	}
	return result
}

// pendingNotifs 返回审核人的待办通知
func (m *mockStore) pendingNotifs(reviewerID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == reviewerID && n.Type == workflow.NotifSubmissionPending {
			result = append(result, *n)
		}
	}
	return result
}

func (m *mockStore) submissionOf(formID, userID string) *model.FormSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.FormID == formID && s.UserID == userID {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (m *mockStore) responsesOf(submissionID string) []model.SubmissionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SubmissionResponse
	for _, r := range m.responses {
		if r.SubmissionID == submissionID {
			result = append(result, *r)
		}
	}
	return result
}
