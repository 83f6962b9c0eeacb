// Package docs memoizes documentation reads for the process lifetime.
//
// Documentation is not user-scoped, so one entry serves every caller.
// Failed loads are not cached.
package docs

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

type LoadFunc func(ctx context.Context) (any, error)

type Cache struct {
	entries sync.Map
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached value for key, calling load at most once per key
// even when several callers miss at the same time.
func (c *Cache) Get(ctx context.Context, key string, load LoadFunc) (any, error) {
	if v, ok := c.entries.Load(key); ok {
		slog.Debug("Documentation cache hit", "key", key)
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		actual, _ := c.entries.LoadOrStore(key, v)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Documentation cache fill", "key", key, "shared", shared)
	return v, nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
