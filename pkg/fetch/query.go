package fetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func loads a value. It must return an error to signal failure.
type Func[T any] func(ctx context.Context) (T, error)

type cacheEntry[T any] struct {
	value     T
	timestamp time.Time
}

// Query tracks the outcome of a zero-argument read.
//
// A Query owns one cache slot and, when RefetchInterval is set, one polling
// goroutine. Both are private to the instance. Call Close to stop polling
// and cancel in-flight requests; Close must not be called from a callback.
type Query[T any] struct {
	fn   Func[T]
	opts Options[T]
	log  *zap.Logger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State[T]
	cache    *cacheEntry[T]
	seq      uint64
	interval time.Duration
	stopPoll chan struct{}
	closed   bool

	// cacheFloor is the last request id issued before the slot was
	// invalidated. Results from requests at or below it are not cached.
	cacheFloor uint64
}

// NewQuery creates a Query for fn. Unless opts.Manual is set the first fetch
// starts immediately in the background and the returned Query is already
// loading.
func NewQuery[T any](fn Func[T], opts Options[T]) *Query[T] {
	q := &Query[T]{
		fn:   fn,
		opts: opts,
		log:  loggerOrNop(opts.Logger),
		now:  opts.Now,
	}
	if q.now == nil {
		q.now = time.Now
	}
	q.ctx, q.cancel = context.WithCancel(context.Background())

	if !opts.Manual {
		if seq, ok := q.begin(); ok {
			q.wg.Add(1)
			go func() {
				defer q.wg.Done()
				q.run(q.ctx, seq)
			}()
		}
	}

	q.mu.Lock()
	q.startPollingLocked(opts.RefetchInterval)
	q.mu.Unlock()
	return q
}

// State returns a snapshot of the current state.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Data returns the current data and whether there is any.
func (q *Query[T]) Data() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state.Data, q.state.HasData
}

// Refetch loads fresh data and blocks until the request settles. When the
// cache slot is younger than CacheTime the cached value is replayed and fn
// is not called. Failures are recorded in State, never returned.
func (q *Query[T]) Refetch(ctx context.Context) {
	seq, ok := q.begin()
	if !ok {
		return
	}
	q.run(ctx, seq)
}

// Mutate overwrites the data locally, and the cache slot when caching is
// enabled. Loading and Error are left as they are.
func (q *Query[T]) Mutate(data T) {
	q.mu.Lock()
	q.state.Data = data
	q.state.HasData = true
	if q.opts.CacheTime > 0 {
		q.cache = &cacheEntry[T]{value: data, timestamp: q.now()}
	}
	snap := q.state
	q.mu.Unlock()
	q.notify(snap)
}

// SetRefetchInterval replaces the polling period. Zero or a negative value
// stops polling.
func (q *Query[T]) SetRefetchInterval(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || d == q.interval {
		return
	}
	q.stopPollingLocked()
	q.startPollingLocked(d)
}

// Close stops polling, cancels in-flight requests and waits for background
// requests to return. Results that settle after Close are dropped. Close is
// idempotent.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.stopPollingLocked()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// begin serves the request from cache or marks a new request in flight.
// It reports whether fn must be called.
func (q *Query[T]) begin() (uint64, bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false
	}

	if c := q.cache; c != nil && q.opts.CacheTime > 0 && q.now().Sub(c.timestamp) < q.opts.CacheTime {
		q.state.Data = c.value
		q.state.HasData = true
		snap := q.state
		q.mu.Unlock()
		q.notify(snap)
		return 0, false
	}

	q.seq++
	seq := q.seq
	q.state.Loading = true
	q.state.Error = ""
	snap := q.state
	q.mu.Unlock()
	q.notify(snap)
	return seq, true
}

func (q *Query[T]) run(ctx context.Context, seq uint64) {
	callCtx, cancel := scope(ctx, q.ctx, q.opts.Timeout)
	data, err := call(callCtx, q.fn)
	cancel()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.opts.DiscardStale && seq != q.seq {
		q.mu.Unlock()
		q.log.Debug("fetch: dropping superseded result", zap.Uint64("request", seq))
		return
	}

	q.state.Loading = false
	if err != nil {
		msg := ErrorMessage(err, DefaultErrorMessage)
		q.state.Error = msg
		snap := q.state
		q.mu.Unlock()

		q.log.Debug("fetch failed", zap.Uint64("request", seq), zap.String("error", msg))
		q.notify(snap)
		if q.opts.OnError != nil {
			q.opts.OnError(msg)
		}
		return
	}

	q.state.Data = data
	q.state.HasData = true
	q.state.Error = ""
	if q.opts.CacheTime > 0 && seq == q.seq && seq > q.cacheFloor {
		q.cache = &cacheEntry[T]{value: data, timestamp: q.now()}
	}
	snap := q.state
	q.mu.Unlock()

	q.notify(snap)
	if q.opts.OnSuccess != nil {
		q.opts.OnSuccess(data)
	}
}

// refetchAsync runs Refetch in the background on the controller's lifetime
// context.
func (q *Query[T]) refetchAsync() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		q.Refetch(q.ctx)
	}()
}

// invalidate empties the cache slot.
func (q *Query[T]) invalidate() {
	q.mu.Lock()
	q.cache = nil
	q.cacheFloor = q.seq
	q.mu.Unlock()
}

func (q *Query[T]) startPollingLocked(d time.Duration) {
	q.interval = d
	if d <= 0 || q.closed {
		return
	}
	stop := make(chan struct{})
	q.stopPoll = stop
	q.wg.Add(1)
	go q.poll(d, stop)
}

func (q *Query[T]) stopPollingLocked() {
	if q.stopPoll != nil {
		close(q.stopPoll)
		q.stopPoll = nil
	}
}

func (q *Query[T]) poll(d time.Duration, stop <-chan struct{}) {
	defer q.wg.Done()
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			q.Refetch(q.ctx)
		}
	}
}

func (q *Query[T]) notify(s State[T]) {
	if q.opts.OnChange != nil {
		q.opts.OnChange(s)
	}
}
