package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTL_GetMissAndHit(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock[string, int](clock.Now)

	_, ok := c.Get("k")
	assert.False(t, ok, "empty cache should miss")

	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTTL_ExpiryBehavesAsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock[string, string](clock.Now)

	c.Set("k", "v", 100*time.Millisecond)

	clock.Advance(99 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok, "read strictly before expiry should hit")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "read at expiry should miss")
}

func TestTTL_GetOrSet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock[string, int](clock.Now)

	computes := 0
	compute := func() (int, error) {
		computes++
		return computes, nil
	}

	v, err := c.GetOrSet("k", 100*time.Millisecond, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Second call within the TTL must not recompute.
	clock.Advance(50 * time.Millisecond)
	v, err = c.GetOrSet("k", 100*time.Millisecond, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, computes)

	// After expiry the value is recomputed and re-cached.
	clock.Advance(100 * time.Millisecond)
	v, err = c.GetOrSet("k", 100*time.Millisecond, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, computes)
}

func TestTTL_GetOrSetErrorNotCached(t *testing.T) {
	c := New[string, int]()

	boom := errors.New("boom")
	_, err := c.GetOrSet("k", time.Minute, func() (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrSet("k", time.Minute, func() (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v, "failed compute must not poison the key")
}

func TestTTL_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock[string, int](clock.Now)

	c.Set("a", 1, 10*time.Millisecond)
	c.Set("b", 2, time.Hour)
	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := New[int, int]()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				c.Set(j%5, i, time.Minute)
				c.Get(j % 5)
				_, _ = c.GetOrSet(j%5, time.Minute, func() (int, error) { return j, nil })
			}
		}()
	}
	wg.Wait()
}
