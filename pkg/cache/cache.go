// Package cache provides a process-local TTL cache used to bound call
// volume against upstream APIs.
package cache

import (
	"sync"
	"time"
)

// entry is a stored value with its expiry.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a generic time-bounded memoization cache. A read at or after an
// entry's expiry behaves identically to a miss. Concurrent GetOrSet calls
// for the same key during a miss may each invoke the compute function;
// there is no single-flight de-duplication.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	now     func() time.Time
}

// New creates an empty TTL cache.
func New[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// NewWithClock creates a TTL cache with an injectable clock for tests.
func NewWithClock[K comparable, V any](now func() time.Time) *TTL[K, V] {
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		now:     now,
	}
}

// Get returns the cached value for key, or the zero value and false on a
// miss or an expired entry.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the given ttl.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// GetOrSet returns the cached value for key if present and unexpired,
// otherwise invokes compute, caches the result for ttl, and returns it.
// A compute error is returned without caching anything.
func (c *TTL[K, V]) GetOrSet(key K, ttl time.Duration, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return v, err
	}

	c.Set(key, v, ttl)
	return v, nil
}

// Delete removes key from the cache.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep removes all expired entries and returns how many were dropped.
// Called periodically by the scheduler so long-gone keys do not accumulate.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries, including any not yet swept expired ones.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
