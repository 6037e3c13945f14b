package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomrisk/internal/app/policies"
)

const lockPollInterval = 5 * time.Millisecond

type lockEntry struct {
	token   string
	expires time.Time
}

// Locker is a process-local policies.Locker with the same lease semantics as
// the Redis lock: a lease expires after its ttl and release is token-checked.
type Locker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]lockEntry), now: time.Now}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (policies.Lease, error) {
	token := uuid.NewString()
	deadline := l.now().Add(wait)
	for {
		if l.tryAcquire(key, token, ttl) {
			return &lease{locker: l, key: key, token: token}, nil
		}
		if !l.now().Before(deadline) {
			return nil, policies.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *Locker) tryAcquire(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, held := l.locks[key]; held && now.Before(cur.expires) {
		return false
	}
	l.locks[key] = lockEntry{token: token, expires: now.Add(ttl)}
	return true
}

func (l *Locker) release(key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, held := l.locks[key]
	if !held || cur.token != token {
		return policies.ErrLockLost
	}
	delete(l.locks, key)
	return nil
}

type lease struct {
	locker *Locker
	key    string
	token  string
}

func (l *lease) Release(context.Context) error {
	return l.locker.release(l.key, l.token)
}

var _ policies.Locker = (*Locker)(nil)
