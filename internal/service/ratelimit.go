package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/repository"
)

// LoginLimiter caps login attempts per client IP and per email using
// fixed-window counters in the StateStore, so limits hold across instances
// when the store is Redis.
type LoginLimiter struct {
	store       repository.StateStore
	ipLimit     int
	ipWindow    time.Duration
	emailLimit  int
	emailWindow time.Duration
}

func NewLoginLimiter(store repository.StateStore, cfg config.RateLimitConfig) *LoginLimiter {
	return &LoginLimiter{
		store:       store,
		ipLimit:     cfg.IPLimit,
		ipWindow:    cfg.IPWindow,
		emailLimit:  cfg.EmailLimit,
		emailWindow: cfg.EmailWindow,
	}
}

func ipKey(ip string) string       { return "login:ip:" + ip }
func emailKey(email string) string { return "login:email:" + strings.ToLower(strings.TrimSpace(email)) }

// Allow records an attempt for ip and email and reports whether it may
// proceed. A non-positive limit disables that check.
func (l *LoginLimiter) Allow(ctx context.Context, ip, email string) (bool, error) {
	if l.ipLimit > 0 && ip != "" {
		n, err := l.store.Incr(ctx, ipKey(ip), l.ipWindow)
		if err != nil {
			return false, fmt.Errorf("count ip attempts: %w", err)
		}
		if n > int64(l.ipLimit) {
			return false, nil
		}
	}
	if l.emailLimit > 0 && email != "" {
		n, err := l.store.Incr(ctx, emailKey(email), l.emailWindow)
		if err != nil {
			return false, fmt.Errorf("count email attempts: %w", err)
		}
		if n > int64(l.emailLimit) {
			return false, nil
		}
	}
	return true, nil
}

// Reset clears the per-email window after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.store.Delete(ctx, emailKey(email))
}

// FormLimiter caps anonymous form submissions per client IP with the same
// fixed-window counters as LoginLimiter.
type FormLimiter struct {
	store  repository.StateStore
	limit  int
	window time.Duration
}

func NewFormLimiter(store repository.StateStore, cfg config.FormsConfig) *FormLimiter {
	return &FormLimiter{store: store, limit: cfg.IPLimit, window: cfg.IPWindow}
}

func formKey(ip string) string { return "form:ip:" + ip }

// Allow records a submission from ip and reports whether it may proceed.
// A non-positive limit disables the check.
func (l *FormLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	if l.limit <= 0 || ip == "" {
		return true, nil
	}
	n, err := l.store.Incr(ctx, formKey(ip), l.window)
	if err != nil {
		return false, fmt.Errorf("count form submissions: %w", err)
	}
	return n <= int64(l.limit), nil
}
