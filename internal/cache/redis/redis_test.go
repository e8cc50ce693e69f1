package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-bot/internal/pairs"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewFromClient(rdb, "test:"), mr
}

func TestNew_PingFailure(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(ctx, ClientConfig{Addr: addr})
	assert.ErrorContains(t, err, "redis: ping")
}

func TestPairCache(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewPairCache(client, time.Hour)
	ctx := context.Background()

	_, err := cache.Load(ctx)
	assert.ErrorIs(t, err, pairs.ErrCacheMiss)

	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Store(ctx, pairs.Snapshot{Symbols: []string{"BTCUSDT", "ETHUSDT"}, Requested: 50, FetchedAt: fetched}))

	assert.True(t, mr.Exists("test:pairs:top"))
	assert.Equal(t, 2*time.Hour, mr.TTL("test:pairs:top"))

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, snap.Symbols)
	assert.Equal(t, 50, snap.Requested)
	assert.True(t, fetched.Equal(snap.FetchedAt))

	mr.FastForward(3 * time.Hour)
	_, err = cache.Load(ctx)
	assert.ErrorIs(t, err, pairs.ErrCacheMiss)
}

func TestLocker(t *testing.T) {
	client, mr := newTestClient(t)
	locker := NewLocker(client)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:run"))

	_, err = locker.Acquire(ctx, "run", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release()
	assert.False(t, mr.Exists("test:lock:run"))

	release, err = locker.Acquire(ctx, "run", time.Minute)
	require.NoError(t, err)
	defer release()
}

func TestLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client, mr := newTestClient(t)
	locker := NewLocker(client)

	release, err := locker.Acquire(context.Background(), "run", time.Second)
	require.NoError(t, err)

	// our lock expires and another run takes it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:run", "someone-else"))

	release()
	got, err := mr.Get("test:lock:run")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
