// Package flight collapses concurrent fetches of the same external resource
// into a single call and caches successful results for a fixed time.
// Errors are never cached, so a failed fetch retries on the next request.
package flight

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 5 * time.Second

type result[T any] struct {
	v   T
	err error
}

type call[T any] struct {
	done chan struct{}
	res  result[T]
}

type Group[T any] struct {
	fetch     func(ctx context.Context, key string) (T, error)
	cache     *gocache.Cache
	cacheTime time.Duration

	mu       sync.Mutex
	inflight map[string]*call[T]
}

func NewGroup[T any](fetch func(ctx context.Context, key string) (T, error), cacheTime time.Duration) *Group[T] {
	return &Group[T]{
		fetch:     fetch,
		cache:     gocache.New(cacheTime, cleanupInterval),
		cacheTime: cacheTime,
		inflight:  make(map[string]*call[T]),
	}
}

// Get returns the cached value for key or runs one shared fetch.
// A fetch keeps running even if the first caller goes away; later callers
// waiting on the same key still get its result. Ctx only bounds the wait.
func (g *Group[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := g.cache.Get(key); ok {
		//nolint:forcetypeassert
		return v.(T), nil
	}

	g.mu.Lock()
	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		return g.wait(ctx, c)
	}
	c := &call[T]{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	go func() {
		v, err := g.fetch(context.Background(), key)
		if err == nil {
			g.cache.Set(key, v, g.cacheTime)
		}
		c.res = result[T]{v: v, err: err}

		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(c.done)
	}()

	return g.wait(ctx, c)
}

func (g *Group[T]) wait(ctx context.Context, c *call[T]) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-c.done:
		return c.res.v, c.res.err
	}
}
