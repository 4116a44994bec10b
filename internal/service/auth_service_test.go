package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"formflow/backend/config"
	"formflow/backend/internal/dto"
	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/jwt"
)

// mockBlacklist 记录被加入黑名单的 jti
type mockBlacklist struct {
	tokens map[string]time.Duration
	err    error
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.tokens[jti] = ttl
	return nil
}

func setupTestAuthService() (AuthService, *mockStore, *mockBlacklist, *jwt.Manager) {
	store := newMockStore()
	repo := newMockRepository(store)
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-tests",
		AccessTokenTTL: 15 * time.Minute,
	})
	blacklist := &mockBlacklist{tokens: make(map[string]time.Duration)}
	return NewAuthService(repo, jwtMgr, blacklist, zap.NewNop()), store, blacklist, jwtMgr
}

// createTestUser 创建带 reviewer 角色的测试用户
func createTestUser(store *mockStore, email, password string, active bool) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo := newMockRepository(store)
	ctx := context.Background()

	role := &model.Role{RoleID: "role-reviewer", Name: "reviewer"}
	if _, err := repo.Role.GetByID(ctx, role.RoleID); err != nil {
		_ = repo.Role.Create(ctx, role)
		_ = repo.Role.SetPermissions(ctx, role.RoleID, []string{workflow.PermReviewSubmissions})
	}

	user := &model.User{
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
		Roles:        []model.Role{{RoleID: role.RoleID}},
	}
	_ = repo.User.Create(ctx, user)
	return user
}

func TestLogin_Success(t *testing.T) {
	svc, store, _, jwtMgr := setupTestAuthService()
	user := createTestUser(store, "alice@test.com", "password123", true)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    " Alice@Test.com ",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if result.User.ID != user.UserID {
		t.Errorf("期望 UserID=%s，实际=%s", user.UserID, result.User.ID)
	}
	if len(result.User.Permissions) != 1 || result.User.Permissions[0] != workflow.PermReviewSubmissions {
		t.Errorf("期望权限 [%s]，实际 %v", workflow.PermReviewSubmissions, result.User.Permissions)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("生成的 Token 应可解析: %v", err)
	}
	if claims.UserID != user.UserID {
		t.Errorf("Token 中 UserID 期望 %s，实际 %s", user.UserID, claims.UserID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "alice@test.com", "password123", true)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "alice@test.com",
		Password: "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "gone@test.com", "password123", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "gone@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

func TestLogout_BlacklistsToken(t *testing.T) {
	svc, store, blacklist, jwtMgr := setupTestAuthService()
	user := createTestUser(store, "alice@test.com", "password123", true)

	token, _ := jwtMgr.GenerateAccessToken(user.UserID, user.Name)
	claims, err := jwtMgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := blacklist.tokens[claims.ID]
	if !ok {
		t.Fatal("jti 应加入黑名单")
	}
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("黑名单 TTL 应为 Token 剩余有效期，实际 %v", ttl)
	}
}

func TestLogout_BlacklistError(t *testing.T) {
	svc, store, blacklist, jwtMgr := setupTestAuthService()
	user := createTestUser(store, "alice@test.com", "password123", true)
	blacklist.err = errors.New("redis down")

	token, _ := jwtMgr.GenerateAccessToken(user.UserID, user.Name)
	claims, _ := jwtMgr.ParseToken(token)

	if err := svc.Logout(context.Background(), claims); err == nil {
		t.Error("黑名单写入失败时 Logout 应返回错误")
	}
}

func TestLoadActor_ReflectsCurrentPermissions(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	user := createTestUser(store, "alice@test.com", "password123", true)
	ctx := context.Background()

	actor, err := svc.LoadActor(ctx, user.UserID)
	if err != nil {
		t.Fatalf("LoadActor 应成功: %v", err)
	}
	if !actor.Can(workflow.PermReviewSubmissions) {
		t.Error("期望拥有审核权限")
	}

	// 撤销权限后下一次加载立即生效
	_ = newMockRepository(store).Role.SetPermissions(ctx, "role-reviewer", nil)
	actor, _ = svc.LoadActor(ctx, user.UserID)
	if actor.Can(workflow.PermReviewSubmissions) {
		t.Error("撤销后不应再拥有审核权限")
	}
}

func TestLoadActor_Errors(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	inactive := createTestUser(store, "gone@test.com", "password123", false)

	if _, err := svc.LoadActor(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
	if _, err := svc.LoadActor(context.Background(), inactive.UserID); !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	user := createTestUser(store, "alice@test.com", "password123", true)

	resp, err := svc.Me(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if resp.Email != "alice@test.com" || len(resp.Roles) != 1 {
		t.Errorf("用户信息不符: %+v", resp)
	}

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
