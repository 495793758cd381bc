package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
}

func TestMemoryLimiter_HundredthAllowedHundredFirstRejected(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 100}, 1024).WithClock(clock.Now)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be allowed", i)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	other, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")
}

func TestMemoryLimiter_WindowResetsLazily(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 2}, 1024).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, _ := l.Allow(ctx, "ip")
		require.True(t, d.Allowed)
	}
	d, _ := l.Allow(ctx, "ip")
	require.False(t, d.Allowed)

	clock.Advance(61 * time.Second)

	d, _ = l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestMemoryLimiter_ConcurrentHitsNeverExceedCap(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Hour, Max: 100}, 1024)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(ctx, "shared")
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func TestMemoryLimiter_BoundedAndSwept(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 10}, shardCount*2).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, l.Len(), shardCount*2)

	clock.Advance(2 * time.Minute)
	removed := l.Sweep(clock.Now())
	assert.Greater(t, removed, 0)
	assert.Equal(t, 0, l.Len())
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, Config{Window: time.Minute, Max: 100})
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be allowed", i)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	ttl := mr.TTL("rl:gate:10.0.0.1")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	mr.FastForward(61 * time.Second)

	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisLimiter(client, Config{}).Allow(context.Background(), "ip")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
