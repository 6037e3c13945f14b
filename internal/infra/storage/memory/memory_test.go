package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/app/middleware"
	appoutbox "roomrisk/internal/app/outbox"
	"roomrisk/internal/app/policies"
)

func TestLockerMutualExclusion(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Acquire(ctx, "roomrisk:property:hotel-1", time.Second, time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, lease.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLockerWaitAndExpiry(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	held, err := l.Acquire(ctx, "k", time.Minute, 0)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "k", time.Minute, 0)
	assert.ErrorIs(t, err, policies.ErrLockNotAcquired)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "k", time.Minute, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, held.Release(ctx), policies.ErrLockLost)
	assert.NoError(t, fresh.Release(ctx))
}

func TestOutboxClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	require.NoError(t, o.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "reservation.held"}))

	p, err := o.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Attempts)

	again, err := o.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again, "claimed records are not handed out twice")

	require.NoError(t, o.MarkFailed(ctx, "e1", now.Add(time.Second), "boom"))
	p, _ = o.Claim(ctx, "w1")
	assert.Nil(t, p)

	now = now.Add(time.Second)
	p, _ = o.Claim(ctx, "w1")
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Attempts)

	require.NoError(t, o.MarkSent(ctx, "e1"))
	assert.Equal(t, 0, o.Pending())
	assert.Len(t, o.Records(), 1)
}

func TestIdempotencyStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)
	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "fresh", OccurredAt: time.Now()}))
	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "stale", OccurredAt: time.Now().Add(-2 * time.Hour)}))

	_, ok, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, _ = s.Get(ctx, "stale")
	assert.False(t, ok)

	_, ok, _ = s.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestIdempotencyStoreClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)
	rec := middleware.IdempotencyRecord{Key: "k", Command: "reservations.hold", OccurredAt: time.Now()}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Claim(ctx, rec)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Pending)

	require.NoError(t, s.Release(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)

	claimed, err := s.Claim(ctx, rec)
	require.NoError(t, err)
	assert.True(t, claimed)
	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k", Command: "reservations.hold", OccurredAt: time.Now()}))
	require.NoError(t, s.Release(ctx, "k"))
	got, ok, _ = s.Get(ctx, "k")
	require.True(t, ok, "release keeps completed records")
	assert.False(t, got.Pending)
}

func TestIdempotencyStoreExpiredClaimCanBeTakenOver(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)
	old := middleware.IdempotencyRecord{Key: "k", OccurredAt: time.Now().Add(-2 * middleware.ClaimLease)}
	ok, err := s.Claim(ctx, old)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Claim(ctx, middleware.IdempotencyRecord{Key: "k", OccurredAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, ok)
}
