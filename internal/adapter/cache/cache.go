// Package cache provides an in-process TTL cache for export payloads.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/niksmo/shop/internal/core/port"
	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = time.Minute

var _ port.Cache = (*MemoryCache)(nil)

type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache() MemoryCache {
	return MemoryCache{gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "MemoryCache.Get"

	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("%s: unexpected value type %T", op, v)
	}
	return bytes.Clone(b), true, nil
}

// Set stores a copy of v, the caller may reuse the slice.
// Get returns a copy as well.
func (m MemoryCache) Set(
	ctx context.Context, key string, v []byte, ttl time.Duration,
) error {
	const op = "MemoryCache.Set"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if ttl <= 0 {
		return fmt.Errorf("%s: non-positive ttl %s", op, ttl)
	}

	m.c.Set(key, bytes.Clone(v), ttl)
	return nil
}

func (m MemoryCache) Len() int {
	return m.c.ItemCount()
}
