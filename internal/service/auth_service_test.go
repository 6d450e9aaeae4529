package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/crypto"
	jwtpkg "smartbin/portal/pkg/jwt"
)

type authFixture struct {
	svc   AuthService
	users *fakeUserRepo
	store repository.StateStore
	user  *model.User
}

func newAuthFixture(t *testing.T, limits config.RateLimitConfig) *authFixture {
	t.Helper()
	users := newFakeUserRepo()
	hash, err := crypto.HashPassword("s3cret-pass")
	require.NoError(t, err)
	user := &model.User{
		ID:           uuid.New(),
		Email:        "ops@smartbin.example",
		Name:         "Ops",
		PasswordHash: hash,
		Role:         authz.RoleOperator,
		Status:       model.UserStatusActive,
	}
	require.NoError(t, users.Create(context.Background(), user))

	store := repository.NewMemoryStateStore()
	svc := NewAuthService(
		users, store,
		jwtpkg.NewManager("test-key", "smartbin", time.Hour),
		NewLoginLimiter(store, limits),
		zap.NewNop(),
	)
	return &authFixture{svc: svc, users: users, store: store, user: user}
}

func TestAuthService_LoginSuccess(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "10.0.0.1", "  OPS@smartbin.example ", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, f.user.ID, sess.User.ID)
	assert.Equal(t, authz.HomeDashboard, sess.Home)
	assert.Contains(t, sess.Permissions, authz.PermBinsOperate)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	stored, err := f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	claims, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOperator, claims.Role)
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ip", "nobody@smartbin.example", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ip", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_DisabledUser(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	ctx := context.Background()

	f.user.Status = model.UserStatusDisabled
	require.NoError(t, f.users.Update(ctx, f.user))

	_, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	assert.ErrorIs(t, err, ErrUserDisabled)

	_, err = f.svc.CurrentUser(ctx, f.user.ID)
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestAuthService_LogoutRevokes(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	require.NoError(t, err)
	claims, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	assert.ErrorIs(t, f.svc.Logout(ctx, nil), ErrTokenInvalid)
}

func TestAuthService_AuthenticateFollowsAccountChanges(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	require.NoError(t, err)

	// Demotion applies to the live session.
	f.user.Role = authz.RoleCustomer
	require.NoError(t, f.users.Update(ctx, f.user))
	claims, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleCustomer, claims.Role)

	f.user.Status = model.UserStatusDisabled
	require.NoError(t, f.users.Update(ctx, f.user))
	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUserDisabled)

	f.user.Status = model.UserStatusActive
	require.NoError(t, f.users.Update(ctx, f.user))
	_, err = f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, f.user.ID))
	_, err = f.svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_RateLimitPerEmail(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{EmailLimit: 2, EmailWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	// Even the right password is refused once the window is exhausted.
	_, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// Other accounts are unaffected.
	_, err = f.svc.Login(ctx, "ip", "other@smartbin.example", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RateLimitPerIP(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{IPLimit: 1, IPWindow: time.Minute})
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "10.0.0.9", "a@smartbin.example", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "10.0.0.9", "ops@smartbin.example", "s3cret-pass")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = f.svc.Login(ctx, "10.0.0.10", "ops@smartbin.example", "s3cret-pass")
	assert.NoError(t, err)
}

func TestAuthService_SuccessResetsEmailWindow(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{EmailLimit: 2, EmailWindow: time.Minute})
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "ip", "ops@smartbin.example", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ip", "ops@smartbin.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ip", "ops@smartbin.example", "s3cret-pass")
	assert.NoError(t, err)
}

func TestAuthService_CurrentUserMissing(t *testing.T) {
	f := newAuthFixture(t, config.RateLimitConfig{})
	_, err := f.svc.CurrentUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFormLimiter(t *testing.T) {
	store := repository.NewMemoryStateStore()
	ctx := context.Background()

	l := NewFormLimiter(store, config.FormsConfig{IPLimit: 1, IPWindow: time.Minute})
	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	off := NewFormLimiter(store, config.FormsConfig{})
	for i := 0; i < 3; i++ {
		ok, err = off.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
