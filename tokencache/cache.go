// Package tokencache provides a small TTL-bound cache for short-lived
// credentials. Expiry is evaluated lazily on read; there is no background
// eviction.
package tokencache

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache stores values for a fixed TTL. It is safe for concurrent use.
type Cache[V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the clock used to compute and check expiry.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates a cache whose entries expire ttl after they are set.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		ttl:     ttl,
		clock:   o.clock,
		entries: make(map[string]entry[V]),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the value for key if it was set and has not expired.
// An expired entry is removed and reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, expiring TTL from now.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// GetOrFetch returns the cached value for key. On a miss it calls fetch,
// stores a successful result and returns it. A fetch error is returned
// unchanged and nothing is stored.
//
// Concurrent misses may each call fetch; the last result wins.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
