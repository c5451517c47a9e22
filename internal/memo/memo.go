// Package memo provides a process-wide memoization cache with no expiry.
//
// Values are computed at most once per key; concurrent callers asking for a
// key that is being computed wait for that computation instead of starting
// their own. Failed computations are not stored, so the next call retries.
// Cached values are shared and MUST NOT be mutated by callers.
package memo

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/metrics"
)

// Cache memoizes values of type V by key K.
type Cache[K comparable, V any] struct {
	name    string
	mu      sync.RWMutex
	entries map[K]V
	// gen increments on Reset so in-flight computations started before
	// a reset do not repopulate the cache.
	gen uint64
	sf  singleflight.Group
}

// New creates an empty cache. name labels its hit/miss metrics.
func New[K comparable, V any](name string) *Cache[K, V] {
	return &Cache[K, V]{name: name, entries: make(map[K]V)}
}

// Get returns the cached value for key, if any.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Do returns the cached value for key, computing it with fn on a miss.
func (c *Cache[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	gen := c.generation()
	res, err, _ := c.sf.Do(c.flightKey(gen, key), func() (any, error) {
		return c.compute(gen, key, fn)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// DoContext is Do for blocking computations. fn runs with ctx's values but
// not its cancellation, so a caller that gives up never fails the callers
// sharing the computation. Each caller still returns once its own ctx is done.
func (c *Cache[K, V]) DoContext(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	gen := c.generation()
	detached := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(c.flightKey(gen, key), func() (any, error) {
		return c.compute(gen, key, func() (V, error) { return fn(detached) })
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}

func (c *Cache[K, V]) lookup(key K) (V, bool) {
	v, ok := c.Get(key)
	metrics.RecordCacheLookup(c.name, ok)
	return v, ok
}

func (c *Cache[K, V]) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// flightKey includes the generation so a computation started before Reset is
// never joined by callers arriving after it.
func (c *Cache[K, V]) flightKey(gen uint64, key K) string {
	return fmt.Sprintf("%d/%#v", gen, key)
}

func (c *Cache[K, V]) compute(gen uint64, key K, fn func() (V, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.entries[key] = v
	}
	c.mu.Unlock()
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached entry.
func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	c.entries = make(map[K]V)
	c.gen++
	c.mu.Unlock()
}
