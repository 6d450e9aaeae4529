package fetch

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultErrorMessage is stored when a failed fetch carries no message.
	DefaultErrorMessage = "An error occurred"

	// DefaultMutationErrorMessage is stored when a failed mutation carries no message.
	DefaultMutationErrorMessage = "Mutation failed"
)

// State is a snapshot of a controller.
//
// HasData reports whether Data holds a value; the zero State has no data,
// is not loading and has no error.
type State[T any] struct {
	Data    T      `json:"data"`
	HasData bool   `json:"has_data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the most recent attempt failed.
func (s State[T]) Failed() bool {
	return s.Error != ""
}

// ErrorMessage returns the message a controller stores for err, or fallback
// when err is nil or has an empty message.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprint(e.value)
}

// call runs fn and converts a panic into an error.
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = &panicError{value: r}
		}
	}()
	return fn(ctx)
}

// scope derives the context for a single call. It is done when parent is
// done, when lifetime is done (if non-nil), or after timeout (if positive).
func scope(parent, lifetime context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := func() bool { return false }
	if lifetime != nil {
		stop = context.AfterFunc(lifetime, cancel)
	}
	if timeout <= 0 {
		return ctx, func() {
			stop()
			cancel()
		}
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancelTimeout()
		stop()
		cancel()
	}
}
