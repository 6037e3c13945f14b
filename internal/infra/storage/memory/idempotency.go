package memory

import (
	"context"
	"sync"
	"time"

	"roomrisk/internal/app/middleware"
)

// IdempotencyStore keeps command results in memory. Records older than ttl
// are treated as absent.
type IdempotencyStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.live(key, time.Now())
	return rec, ok, nil
}

func (s *IdempotencyStore) Claim(ctx context.Context, rec middleware.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(rec.Key, time.Now()); ok {
		return false, nil
	}
	rec.Pending = true
	s.items[rec.Key] = rec
	return true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok && rec.Pending {
		delete(s.items, key)
	}
	return nil
}

// live returns the record for key unless it expired; callers hold mu.
func (s *IdempotencyStore) live(key string, now time.Time) (middleware.IdempotencyRecord, bool) {
	rec, ok := s.items[key]
	if !ok || middleware.ClaimExpired(rec, now) {
		return middleware.IdempotencyRecord{}, false
	}
	if s.ttl > 0 && now.Sub(rec.OccurredAt) > s.ttl {
		return middleware.IdempotencyRecord{}, false
	}
	return rec, true
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
