package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is a size and time bounded in-process Store, safe for concurrent use.
type LRU struct {
	entries *expirable.LRU[string, []string]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRU{entries: expirable.NewLRU[string, []string](size, nil, ttl)}
}

func (c *LRU) Get(ctx context.Context, key string) ([]string, bool) {
	ids, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return clone(ids), true
}

func (c *LRU) Set(ctx context.Context, key string, ids []string) {
	c.entries.Add(key, clone(ids))
}

func (c *LRU) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		c.entries.Remove(key)
	}
}

func (c *LRU) Purge(ctx context.Context) {
	c.entries.Purge()
}

func (c *LRU) Len() int {
	return c.entries.Len()
}
