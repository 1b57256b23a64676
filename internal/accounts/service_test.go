package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/amendoza/storefront-backend/pkg/auth"
	"github.com/amendoza/storefront-backend/pkg/config"
	"github.com/amendoza/storefront-backend/pkg/db/models"
	"github.com/amendoza/storefront-backend/pkg/enums"
	pkgerrors "github.com/amendoza/storefront-backend/pkg/errors"
	"github.com/amendoza/storefront-backend/pkg/security"
)

func TestServiceLoginWithUsername(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, "shopper", "shopper@example.com", password)
	cfg := testJWTConfig()

	svc, _ := buildTestService(t, user, cfg)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "shopper",
		Password:   password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role claim, got %s", claims.Role)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginUppercaseEmailFallsBackToLowercase(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, "shopper", "shopper@example.com", password)
	cfg := testJWTConfig()

	repo := &stubUserRepo{byIdentifier: map[string]*models.User{
		"shopper@example.com": user,
	}}
	svc := buildServiceWithRepo(t, repo, cfg)

	if _, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "Shopper@Example.COM",
		Password:   password,
	}); err != nil {
		t.Fatalf("login with mixed-case email: %v", err)
	}
}

func TestServiceLoginBadPassword(t *testing.T) {
	user := testUser(t, "shopper", "shopper@example.com", "right-password")
	svc, _ := buildTestService(t, user, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "shopper",
		Password:   "wrong-password",
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceLoginInactiveUser(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, "shopper", "shopper@example.com", password)
	user.IsActive = false
	svc, _ := buildTestService(t, user, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "shopper",
		Password:   password,
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceLoginUnknownIdentifier(t *testing.T) {
	svc := buildServiceWithRepo(t, &stubUserRepo{}, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "ghost",
		Password:   "whatever",
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceRegisterDuplicate(t *testing.T) {
	repo := &stubUserRepo{createErr: errDuplicateKey{}}
	svc := buildServiceWithRepo(t, repo, testJWTConfig())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "shopper",
		Email:    "shopper@example.com",
		Password: "customer-secret",
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestServiceRegisterLowercasesEmail(t *testing.T) {
	repo := &stubUserRepo{}
	svc := buildServiceWithRepo(t, repo, testJWTConfig())

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Username: "shopper",
		Email:    "Shopper@Example.COM",
		Password: "customer-secret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "shopper@example.com" {
		t.Fatalf("expected lowercase email, got %s", dto.Email)
	}
	if dto.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role by default, got %s", dto.Role)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, "shopper", "shopper@example.com", password)
	cfg := testJWTConfig()
	svc, sessions := buildTestService(t, user, cfg)

	login, err := svc.Login(context.Background(), LoginRequest{
		Identifier: "shopper",
		Password:   password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}

	claims, err := pkgauth.ParseAccessToken(cfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected same user on rotated token")
	}
	if sessions.rotated != 1 {
		t.Fatalf("expected one rotation, got %d", sessions.rotated)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	user := testUser(t, "shopper", "shopper@example.com", "customer-secret")
	svc, sessions := buildTestService(t, user, testJWTConfig())

	if err := svc.Logout(context.Background(), "some-access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessions.revoked != 1 {
		t.Fatalf("expected one revoke, got %d", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func testUser(t *testing.T, username, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "storefront",
		ExpirationMinutes: 30,
	}
}

func buildTestService(t *testing.T, user *models.User, cfg config.JWTConfig) (Service, *stubSessionManager) {
	t.Helper()
	repo := &stubUserRepo{byIdentifier: map[string]*models.User{}}
	if user != nil {
		repo.byIdentifier[user.Username] = user
		repo.byIdentifier[user.Email] = user
	}
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      cfg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func buildServiceWithRepo(t *testing.T, repo userRepository, cfg config.JWTConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{},
		JWTConfig:      cfg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

type errDuplicateKey struct{}

func (errDuplicateKey) Error() string {
	return `duplicate key value violates unique constraint "idx_users_email"`
}

type stubUserRepo struct {
	byIdentifier map[string]*models.User
	createErr    error
}

func (s *stubUserRepo) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	return user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byIdentifier {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if user, ok := s.byIdentifier[identifier]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, u := range s.byIdentifier {
		if u.ID == id {
			u.LastLoginAt = &at
		}
	}
	return nil
}

type stubSessionManager struct {
	rotated int
	revoked int
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotated++
	newID := uuid.NewString()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked++
	return nil
}
