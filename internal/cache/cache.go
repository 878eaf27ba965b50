// Package cache provides a content-addressable cache for expensive
// enrichment artifacts. Entries are keyed by a SHA-256 digest of the
// exact input bytes and are immutable once written.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc derives an artifact from the input bytes. It must be a
// pure function of its input: two calls with identical bytes must
// produce equivalent artifacts.
type ComputeFunc[V any] func(ctx context.Context, content []byte) (V, error)

// Cache maps a content hash to a previously computed artifact. There is
// no eviction; the key space is bounded by the set of distinct inputs a
// deployment actually sees. Concurrent misses for the same key are
// collapsed to a single in-flight computation.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group

	onHit  func()
	onMiss func()
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithHitHook registers a callback invoked on every cache hit.
func WithHitHook[V any](fn func()) Option[V] {
	return func(c *Cache[V]) { c.onHit = fn }
}

// WithMissHook registers a callback invoked on every cache miss.
func WithMissHook[V any](fn func()) Option[V] {
	return func(c *Cache[V]) { c.onMiss = fn }
}

// New creates an empty cache.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]V),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the content hash used to address an artifact.
func Key(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached artifact for the given content bytes,
// invoking compute on a miss and storing the result. The stored value is
// first-writer-wins: once a key is written it is never replaced.
func (c *Cache[V]) GetOrCompute(ctx context.Context, content []byte, compute ComputeFunc[V]) (V, error) {
	key := Key(content)

	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		if c.onHit != nil {
			c.onHit()
		}
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A racing caller may have stored the value between the read
		// above and entering the flight.
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		if c.onMiss != nil {
			c.onMiss()
		}

		computed, err := compute(ctx, content)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.entries[key]; ok {
			return existing, nil
		}
		c.entries[key] = computed
		return computed, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return result.(V), nil
}

// Len reports the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
