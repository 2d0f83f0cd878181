package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/auth"
	"github.com/spec-kit/campus-service/internal/config"
	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     nopIfNil(deps.Logger),
	}
}

// Register creates a student account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := requireFields(map[string]string{
		"username": username,
		"email":    email,
		"password": input.Password,
	}); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errorutil.NewValidationError("email is invalid", map[string]any{"fields": []string{"email"}})
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, errorutil.NewValidationError("password too short", map[string]any{"min": auth.MinPasswordLength})
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, errorutil.NewValidationError(err.Error(), nil)
		}
		return nil, errorutil.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, errorutil.NewConflict("username or email already registered", nil)
		}
		return nil, errorutil.NewStoreError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return s.issue(user)
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return errorutil.NewConflict("username already taken", map[string]any{"field": "username"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewStoreError(err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errorutil.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewStoreError(err)
	}
	return nil
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if err := requireFields(map[string]string{"username": username, "password": password}); err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, errorutil.NewStoreError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
