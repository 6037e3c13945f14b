package policies

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockNotAcquired = errors.New("lock: not acquired")
	ErrLockLost        = errors.New("lock: lease lost before release")
)

// Locker serialises check-then-write sequences per key (one key per property).
type Locker interface {
	// Acquire blocks up to wait for the lock and holds it for at most ttl.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}
