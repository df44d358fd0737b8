// Package cache provides the expiring read cache placed in front of the
// backing store.
//
// Entries share one TTL. Expiry is checked only when an entry is read: an
// expired entry is deleted by the Get that finds it, and nothing sweeps in the
// background. The cache is constructed explicitly and handed to its users, so
// separate instances never share state.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Expiring is a key/value cache with a fixed time-to-live for every entry.
// It is safe for concurrent use.
type Expiring[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	now        func() time.Time
	generation uint64
}

// Option configures an Expiring cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a cache whose entries live for ttl. A ttl of zero or less
// disables caching: every Get misses.
func New[V any](ttl time.Duration, opts ...Option) *Expiring[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Expiring[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value stored under key if it is younger than the TTL.
// An entry whose age has reached the TTL is removed and reported absent.
func (c *Expiring[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the current time, replacing any entry.
func (c *Expiring[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Generation returns a counter that changes on every Clear. Pair it with
// SetIfCurrent to fill the cache from a load that may have overlapped a write.
func (c *Expiring[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SetIfCurrent stores value only if Clear has not run since generation was
// read. It reports whether the value was stored.
func (c *Expiring[V]) SetIfCurrent(key string, value V, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
	return true
}

// Invalidate removes the entry for key. Missing keys are ignored.
func (c *Expiring[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Expiring[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.generation++
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (c *Expiring[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Expiring[V]) TTL() time.Duration {
	return c.ttl
}
