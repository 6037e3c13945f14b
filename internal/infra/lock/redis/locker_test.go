package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/app/policies"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := NewClient(Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLocker(client)
	require.NoError(t, l.Ping(context.Background()))
	return l
}

func TestLockerExcludesConcurrentHolders(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	key := "roomrisk:test:" + uuid.NewString()

	first, err := l.Acquire(ctx, key, time.Second, 0)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key, time.Second, 50*time.Millisecond)
	assert.ErrorIs(t, err, policies.ErrLockNotAcquired)

	require.NoError(t, first.Release(ctx))
	second, err := l.Acquire(ctx, key, time.Second, 0)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestLockerReleaseAfterExpiry(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	key := "roomrisk:test:" + uuid.NewString()

	stale, err := l.Acquire(ctx, key, 20*time.Millisecond, 0)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	fresh, err := l.Acquire(ctx, key, time.Second, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, stale.Release(ctx), policies.ErrLockLost)
	require.NoError(t, fresh.Release(ctx))
}
