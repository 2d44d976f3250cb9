package beq

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cacheCleanupInterval = time.Minute

// TTLCache is the process-wide cache injected into oracle clients.
// Entries expire on read; the key space is bounded by the set of tokens
// observed so no further eviction is needed. Writes are last-writer-wins,
// races only affect freshness.
type TTLCache[T any] struct {
	inner *gocache.Cache
}

func NewTTLCache[T any]() *TTLCache[T] {
	return &TTLCache[T]{inner: gocache.New(gocache.NoExpiration, cacheCleanupInterval)}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	v, ok := c.inner.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	//nolint:forcetypeassert
	return v.(T), true
}

func (c *TTLCache[T]) Put(key string, value T, ttl time.Duration) {
	c.inner.Set(key, value, ttl)
}
