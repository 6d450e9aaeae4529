package fetch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MutateFunc performs a write with the given variables.
type MutateFunc[V, T any] func(ctx context.Context, vars V) (T, error)

// Mutation tracks the outcome of a write. It never caches, polls or runs
// on its own.
type Mutation[V, T any] struct {
	fn   MutateFunc[V, T]
	opts MutationOptions[T]
	log  *zap.Logger

	mu    sync.Mutex
	state State[T]
}

// NewMutation creates a Mutation for fn.
func NewMutation[V, T any](fn MutateFunc[V, T], opts MutationOptions[T]) *Mutation[V, T] {
	return &Mutation[V, T]{
		fn:   fn,
		opts: opts,
		log:  loggerOrNop(opts.Logger),
	}
}

// Mutate runs the write and returns its result with ok=true. On failure it
// records the message in State.Error and returns the zero value with
// ok=false; it never panics on behalf of fn.
//
// Overlapping calls are not queued; the last one to settle wins.
func (m *Mutation[V, T]) Mutate(ctx context.Context, vars V) (result T, ok bool) {
	m.update(func(s *State[T]) {
		s.Loading = true
		s.Error = ""
	})

	callCtx, cancel := scope(ctx, nil, m.opts.Timeout)
	data, err := call(callCtx, func(ctx context.Context) (T, error) {
		return m.fn(ctx, vars)
	})
	cancel()

	if err != nil {
		msg := ErrorMessage(err, DefaultMutationErrorMessage)
		m.update(func(s *State[T]) {
			s.Loading = false
			s.Error = msg
		})
		m.log.Debug("mutation failed", zap.String("error", msg))
		if m.opts.OnError != nil {
			m.opts.OnError(msg)
		}
		var zero T
		return zero, false
	}

	m.update(func(s *State[T]) {
		s.Loading = false
		s.Data = data
		s.HasData = true
	})
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(data)
	}
	return data, true
}

// Reset returns the state to its zero value. An in-flight call is not
// cancelled and may still overwrite the state when it settles.
func (m *Mutation[V, T]) Reset() {
	m.update(func(s *State[T]) {
		*s = State[T]{}
	})
}

// State returns a snapshot of the current state.
func (m *Mutation[V, T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation[V, T]) update(fn func(*State[T])) {
	m.mu.Lock()
	fn(&m.state)
	snap := m.state
	m.mu.Unlock()

	if m.opts.OnChange != nil {
		m.opts.OnChange(snap)
	}
}
