package fetch

import (
	"time"

	"go.uber.org/zap"
)

// DefaultPageSize is the page size used by Paged when none is configured.
const DefaultPageSize = 10

// Options configures a Query.
type Options[T any] struct {
	// Manual disables the fetch that otherwise runs once at creation.
	Manual bool

	// CacheTime is how long a successful result is replayed instead of
	// calling the wrapped function again.
	// Default: 0 (no caching)
	CacheTime time.Duration

	// RefetchInterval re-runs the fetch on a fixed period until Close.
	// Default: 0 (no polling)
	RefetchInterval time.Duration

	// Timeout bounds each call of the wrapped function.
	// Default: 0 (no timeout)
	Timeout time.Duration

	// DiscardStale drops the result of a request that was superseded by a
	// later one. Without it overlapping requests race and the last one to
	// settle wins.
	DiscardStale bool

	// OnSuccess is called after each successful fetch.
	OnSuccess func(data T)

	// OnError is called with the failure message after each failed fetch.
	OnError func(message string)

	// OnChange receives a snapshot after every state transition.
	OnChange func(State[T])

	// Logger receives debug entries for failed fetches.
	// Default: zap.NewNop()
	Logger *zap.Logger

	// Now is the clock used to timestamp cache entries.
	// Default: time.Now
	Now func() time.Time
}

// PagedOptions configures a Paged controller.
type PagedOptions[T Counted] struct {
	Options[T]

	// InitialPage is the 1-based page loaded first.
	// Default: 1
	InitialPage int

	// PageSize is the number of items requested per page. It is fixed for
	// the lifetime of the controller.
	// Default: 10
	PageSize int
}

// MutationOptions configures a Mutation.
type MutationOptions[T any] struct {
	OnSuccess func(data T)
	OnError   func(message string)
	OnChange  func(State[T])

	// Timeout bounds each call of the wrapped function.
	// Default: 0 (no timeout)
	Timeout time.Duration

	// Default: zap.NewNop()
	Logger *zap.Logger
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
