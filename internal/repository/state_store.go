package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state: token revocations and
// login attempt counters.
// Implementations: Redis (multi-instance) or in-memory (local dev / single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr increments the counter at key and returns the new value. The TTL
	// is applied only when the counter is created, giving a fixed window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
