package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func newTestLimiter(t *testing.T, rate float64, burst int) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m := NewMemoryLimiter(rate, burst, WithClock(clock.Now))
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m, clock
}

func allowN(t *testing.T, m *MemoryLimiter, key string, n int) int {
	t.Helper()
	allowed := 0
	for range n {
		ok, err := m.Allow(context.Background(), key)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	return allowed
}

func TestMemoryLimiter_Burst(t *testing.T) {
	m, _ := newTestLimiter(t, 1, 3)
	assert.Equal(t, 3, allowN(t, m, "a", 5))
}

func TestMemoryLimiter_Refill(t *testing.T) {
	m, clock := newTestLimiter(t, 2, 2)
	require.Equal(t, 2, allowN(t, m, "a", 3))

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, allowN(t, m, "a", 2), "half a second at 2/s refills one token")
}

func TestMemoryLimiter_RefillCapsAtBurst(t *testing.T) {
	m, clock := newTestLimiter(t, 100, 3)
	allowN(t, m, "a", 3)

	clock.Advance(time.Hour)
	assert.Equal(t, 3, allowN(t, m, "a", 10))
}

func TestMemoryLimiter_IndependentKeys(t *testing.T) {
	m, _ := newTestLimiter(t, 1, 1)
	assert.Equal(t, 1, allowN(t, m, "a", 2))
	assert.Equal(t, 1, allowN(t, m, "b", 2))
	assert.Equal(t, 2, m.Len())
}

func TestMemoryLimiter_RetryAfter(t *testing.T) {
	m, _ := newTestLimiter(t, 4, 1)
	assert.Zero(t, m.RetryAfter("a"), "unknown key need not wait")

	allowN(t, m, "a", 1)
	assert.Equal(t, 250*time.Millisecond, m.RetryAfter("a"))
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	m := NewMemoryLimiter(1, 1, WithClock(clock.Now), WithIdleTTL(time.Minute))
	defer func() { _ = m.Close() }()

	allowN(t, m, "old", 1)
	clock.Advance(2 * time.Minute)
	allowN(t, m, "fresh", 1)

	m.sweep()
	assert.Equal(t, 1, m.Len())
	m.mu.Lock()
	_, fresh := m.buckets["fresh"]
	m.mu.Unlock()
	assert.True(t, fresh)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	m, _ := newTestLimiter(t, 0, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if ok, _ := m.Allow(context.Background(), "shared"); ok {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryLimiter_CloseIdempotent(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
