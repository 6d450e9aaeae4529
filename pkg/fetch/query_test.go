package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	Value int
}

// fakeClock is a manually advanced clock for cache tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func countingFetch(calls *atomic.Int32) Func[reading] {
	return func(context.Context) (reading, error) {
		n := calls.Add(1)
		return reading{Value: int(n)}, nil
	}
}

func TestQuery_AutoFetchLifecycle(t *testing.T) {
	release := make(chan struct{})
	q := NewQuery(func(context.Context) (reading, error) {
		<-release
		return reading{Value: 42}, nil
	}, Options[reading]{})
	defer q.Close()

	st := q.State()
	assert.True(t, st.Loading, "auto fetch should be loading right after creation")
	assert.False(t, st.HasData)
	assert.Empty(t, st.Error)

	close(release)
	require.Eventually(t, func() bool { return !q.State().Loading }, time.Second, 5*time.Millisecond)

	st = q.State()
	assert.True(t, st.HasData)
	assert.Equal(t, reading{Value: 42}, st.Data)
	assert.Empty(t, st.Error)
}

func TestQuery_AutoFetchFailure(t *testing.T) {
	q := NewQuery(func(context.Context) (reading, error) {
		return reading{}, errors.New("boom")
	}, Options[reading]{})
	defer q.Close()

	require.Eventually(t, func() bool { return !q.State().Loading }, time.Second, 5*time.Millisecond)

	st := q.State()
	assert.Equal(t, "boom", st.Error)
	assert.True(t, st.Failed())
	assert.False(t, st.HasData)
}

func TestQuery_ManualDoesNotFetch(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(countingFetch(&calls), Options[reading]{Manual: true})
	defer q.Close()

	assert.Equal(t, State[reading]{}, q.State())
	assert.Equal(t, int32(0), calls.Load())
}

func TestQuery_CacheShortCircuit(t *testing.T) {
	var calls atomic.Int32
	clock := newFakeClock()
	q := NewQuery(countingFetch(&calls), Options[reading]{
		Manual:    true,
		CacheTime: time.Minute,
		Now:       clock.Now,
	})
	defer q.Close()

	ctx := context.Background()
	q.Refetch(ctx)
	first := q.State().Data

	clock.Advance(30 * time.Second)
	q.Refetch(ctx)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, q.State().Data)
}

func TestQuery_CacheExpiry(t *testing.T) {
	var calls atomic.Int32
	clock := newFakeClock()
	q := NewQuery(countingFetch(&calls), Options[reading]{
		Manual:    true,
		CacheTime: time.Minute,
		Now:       clock.Now,
	})
	defer q.Close()

	ctx := context.Background()
	q.Refetch(ctx)

	clock.Advance(time.Minute + time.Millisecond)
	q.Refetch(ctx)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, reading{Value: 2}, q.State().Data)
}

func TestQuery_CacheBoundaryIsStale(t *testing.T) {
	var calls atomic.Int32
	clock := newFakeClock()
	q := NewQuery(countingFetch(&calls), Options[reading]{
		Manual:    true,
		CacheTime: time.Minute,
		Now:       clock.Now,
	})
	defer q.Close()

	q.Refetch(context.Background())
	clock.Advance(time.Minute)
	q.Refetch(context.Background())

	assert.Equal(t, int32(2), calls.Load(), "an entry exactly cacheTime old must be refetched")
}

func TestQuery_NoCacheByDefault(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(countingFetch(&calls), Options[reading]{Manual: true})
	defer q.Close()

	q.Refetch(context.Background())
	q.Refetch(context.Background())

	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_LoadingLifecycle(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "failure", err: errors.New("sensor offline")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			started := make(chan struct{})
			release := make(chan struct{})
			q := NewQuery(func(context.Context) (reading, error) {
				close(started)
				<-release
				return reading{Value: 7}, tc.err
			}, Options[reading]{Manual: true})
			defer q.Close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				q.Refetch(context.Background())
			}()

			<-started
			assert.True(t, q.State().Loading)

			close(release)
			<-done
			assert.False(t, q.State().Loading)
		})
	}
}

func TestQuery_ErrorClearsOnRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	q := NewQuery(func(context.Context) (reading, error) {
		if fail.Load() {
			return reading{}, errors.New("gateway timeout")
		}
		return reading{Value: 3}, nil
	}, Options[reading]{Manual: true})
	defer q.Close()

	ctx := context.Background()
	q.Refetch(ctx)
	assert.Equal(t, "gateway timeout", q.State().Error)

	fail.Store(false)
	q.Refetch(ctx)

	st := q.State()
	assert.Empty(t, st.Error)
	assert.Equal(t, reading{Value: 3}, st.Data)
}

func TestQuery_KeepsDataOnFailure(t *testing.T) {
	var fail atomic.Bool
	q := NewQuery(func(context.Context) (reading, error) {
		if fail.Load() {
			return reading{}, errors.New("down")
		}
		return reading{Value: 9}, nil
	}, Options[reading]{Manual: true})
	defer q.Close()

	q.Refetch(context.Background())
	fail.Store(true)
	q.Refetch(context.Background())

	st := q.State()
	assert.Equal(t, "down", st.Error)
	assert.True(t, st.HasData)
	assert.Equal(t, reading{Value: 9}, st.Data)
}

func TestQuery_ErrorMessageFallback(t *testing.T) {
	q := NewQuery(func(context.Context) (reading, error) {
		return reading{}, errors.New("")
	}, Options[reading]{Manual: true})
	defer q.Close()

	q.Refetch(context.Background())
	assert.Equal(t, DefaultErrorMessage, q.State().Error)
}

func TestQuery_PanicBecomesError(t *testing.T) {
	q := NewQuery(func(context.Context) (reading, error) {
		panic("kaboom")
	}, Options[reading]{Manual: true})
	defer q.Close()

	assert.NotPanics(t, func() { q.Refetch(context.Background()) })
	st := q.State()
	assert.Equal(t, "kaboom", st.Error)
	assert.False(t, st.Loading)
}

func TestQuery_Callbacks(t *testing.T) {
	var fail atomic.Bool
	var successes, failures []string
	var mu sync.Mutex

	q := NewQuery(func(context.Context) (reading, error) {
		if fail.Load() {
			return reading{}, errors.New("nope")
		}
		return reading{Value: 1}, nil
	}, Options[reading]{
		Manual: true,
		OnSuccess: func(r reading) {
			mu.Lock()
			successes = append(successes, "ok")
			mu.Unlock()
		},
		OnError: func(msg string) {
			mu.Lock()
			failures = append(failures, msg)
			mu.Unlock()
		},
	})
	defer q.Close()

	q.Refetch(context.Background())
	fail.Store(true)
	q.Refetch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ok"}, successes)
	assert.Equal(t, []string{"nope"}, failures)
}

func TestQuery_OnChangeSeesLoadingTransitions(t *testing.T) {
	var mu sync.Mutex
	var loading []bool
	q := NewQuery(func(context.Context) (reading, error) {
		return reading{Value: 1}, nil
	}, Options[reading]{
		Manual: true,
		OnChange: func(s State[reading]) {
			mu.Lock()
			loading = append(loading, s.Loading)
			mu.Unlock()
		},
	})
	defer q.Close()

	q.Refetch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, loading)
}

func TestQuery_MutateIsLocal(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(func(context.Context) (reading, error) {
		calls.Add(1)
		return reading{}, errors.New("unreachable")
	}, Options[reading]{Manual: true})
	defer q.Close()

	q.Refetch(context.Background())
	q.Mutate(reading{Value: 5})

	st := q.State()
	assert.Equal(t, reading{Value: 5}, st.Data)
	assert.True(t, st.HasData)
	assert.Equal(t, "unreachable", st.Error, "mutate must not touch error")
	assert.False(t, st.Loading)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_MutateFeedsCache(t *testing.T) {
	var calls atomic.Int32
	clock := newFakeClock()
	q := NewQuery(countingFetch(&calls), Options[reading]{
		Manual:    true,
		CacheTime: time.Minute,
		Now:       clock.Now,
	})
	defer q.Close()

	q.Mutate(reading{Value: 100})
	q.Refetch(context.Background())

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, reading{Value: 100}, q.State().Data)
}

func TestQuery_Polling(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(countingFetch(&calls), Options[reading]{
		Manual:          true,
		RefetchInterval: 10 * time.Millisecond,
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	q.Close()

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no fetch may run after Close")
}

func TestQuery_SetRefetchInterval(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(countingFetch(&calls), Options[reading]{Manual: true})
	defer q.Close()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	q.SetRefetchInterval(10 * time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	q.SetRefetchInterval(0)
	// let a tick that already fired finish
	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestQuery_Timeout(t *testing.T) {
	q := NewQuery(func(ctx context.Context) (reading, error) {
		<-ctx.Done()
		return reading{}, ctx.Err()
	}, Options[reading]{Manual: true, Timeout: 20 * time.Millisecond})
	defer q.Close()

	q.Refetch(context.Background())

	st := q.State()
	assert.False(t, st.Loading)
	assert.Equal(t, context.DeadlineExceeded.Error(), st.Error)
}

func TestQuery_CallerCancellation(t *testing.T) {
	q := NewQuery(func(ctx context.Context) (reading, error) {
		<-ctx.Done()
		return reading{}, ctx.Err()
	}, Options[reading]{Manual: true})
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Refetch(ctx)

	assert.Equal(t, context.Canceled.Error(), q.State().Error)
}

func TestQuery_CloseCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	q := NewQuery(func(ctx context.Context) (reading, error) {
		close(started)
		<-ctx.Done()
		return reading{}, ctx.Err()
	}, Options[reading]{Manual: true})

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Refetch(context.Background())
	}()

	<-started
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Refetch did not return after Close")
	}

	// closed controllers ignore further requests
	q.Refetch(context.Background())
	q.Close()
}

func TestQuery_OverlappingLastSettleWins(t *testing.T) {
	slow := make(chan struct{})
	var n atomic.Int32
	q := NewQuery(func(context.Context) (reading, error) {
		if n.Add(1) == 1 {
			<-slow
			return reading{Value: 1}, nil
		}
		return reading{Value: 2}, nil
	}, Options[reading]{Manual: true})
	defer q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Refetch(context.Background())
	}()
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)

	q.Refetch(context.Background())
	assert.Equal(t, reading{Value: 2}, q.State().Data)

	close(slow)
	<-done
	assert.Equal(t, reading{Value: 1}, q.State().Data)
}

func TestQuery_DiscardStale(t *testing.T) {
	slow := make(chan struct{})
	var n atomic.Int32
	q := NewQuery(func(context.Context) (reading, error) {
		if n.Add(1) == 1 {
			<-slow
			return reading{Value: 1}, nil
		}
		return reading{Value: 2}, nil
	}, Options[reading]{Manual: true, DiscardStale: true})
	defer q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Refetch(context.Background())
	}()
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)

	q.Refetch(context.Background())
	close(slow)
	<-done

	st := q.State()
	assert.Equal(t, reading{Value: 2}, st.Data)
	assert.False(t, st.Loading)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fallback", ErrorMessage(nil, "fallback"))
	assert.Equal(t, "fallback", ErrorMessage(errors.New(""), "fallback"))
	assert.Equal(t, "x", ErrorMessage(errors.New("x"), "fallback"))
}
