package repository

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
	hasTTL    bool
}

func (e memEntry) expired(now time.Time) bool {
	return e.hasTTL && !now.Before(e.expiresAt)
}

// sweepEvery is how many writes pass between full scans for expired keys.
// Keys that are written once and never read again, such as per-IP login
// counters, are only reclaimed by the scan.
const sweepEvery = 256

type memoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
	writes  int
}

func NewMemoryStateStore() StateStore {
	return newMemoryStateStore(time.Now)
}

func newMemoryStateStore(now func() time.Time) *memoryStateStore {
	return &memoryStateStore{
		entries: make(map[string]memEntry),
		now:     now,
	}
}

// lookup returns a live entry, evicting it when expired. Callers hold mu.
func (s *memoryStateStore) lookup(key string) (memEntry, bool) {
	entry, ok := s.entries[key]
	if ok && entry.expired(s.now()) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return entry, ok
}

// wrote counts a write and sweeps expired entries every sweepEvery writes.
// Callers hold mu.
func (s *memoryStateStore) wrote() {
	s.writes++
	if s.writes < sweepEvery {
		return
	}
	s.writes = 0
	now := s.now()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

func (s *memoryStateStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memEntry{value: value}
	if ttl > 0 {
		entry.hasTTL = true
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	s.wrote()
	return nil
}

func (s *memoryStateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}
	return entry.value, nil
}

func (s *memoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryStateStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(key)
	return ok, nil
}

func (s *memoryStateStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	var n int64
	if ok {
		var err error
		if n, err = strconv.ParseInt(string(entry.value), 10, 64); err != nil {
			return 0, err
		}
	} else if ttl > 0 {
		entry.hasTTL = true
		entry.expiresAt = s.now().Add(ttl)
	}
	n++
	entry.value = []byte(strconv.FormatInt(n, 10))
	s.entries[key] = entry
	s.wrote()
	return n, nil
}
