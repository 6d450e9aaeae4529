package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/crypto"
	jwtpkg "smartbin/portal/pkg/jwt"
)

// Session is returned after a successful login.
type Session struct {
	Token       string             `json:"token"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *model.User        `json:"user"`
	Home        authz.Home         `json:"home"`
	Permissions []authz.Permission `json:"permissions"`
}

type AuthService interface {
	Login(ctx context.Context, clientIP, email, password string) (*Session, error)
	Logout(ctx context.Context, claims *jwtpkg.Claims) error
	Authenticate(ctx context.Context, token string) (*jwtpkg.Claims, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	stateStore repository.StateStore
	jwtManager *jwtpkg.Manager
	limiter    *LoginLimiter
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	limiter *LoginLimiter,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		stateStore: stateStore,
		jwtManager: jwtManager,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

func revokedKey(jti string) string { return "session:revoked:" + jti }

func (s *authService) Login(ctx context.Context, clientIP, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, clientIP, email)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("login blocked by rate limit",
				zap.String("email", email), zap.String("ip", clientIP))
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			crypto.CheckPasswordDummy(password)
			s.logger.Info("login failed", zap.String("email", email), zap.String("ip", clientIP))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !crypto.CheckPassword(password, user.PasswordHash) {
		s.logger.Info("login failed", zap.String("email", email), zap.String("ip", clientIP))
		return nil, ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, ErrUserDisabled
	}

	token, claims, err := s.jwtManager.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return &Session{
		Token:       token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
		Home:        user.Role.Home(),
		Permissions: user.Role.Permissions(),
	}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, claims *jwtpkg.Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrTokenInvalid
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.stateStore.Set(ctx, revokedKey(claims.ID), []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*jwtpkg.Claims, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	revoked, err := s.stateStore.Exists(ctx, revokedKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	// The account is re-read on every request so that disabling, deleting
	// or demoting a user takes effect before the token expires.
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if !user.Active() {
		return nil, ErrUserDisabled
	}
	claims.Role = user.Role
	return claims, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.Active() {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
