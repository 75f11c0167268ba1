// Package cache holds the hierarchy cache backends. Entries are whole
// descendant lists; writers replace or delete entries, never edit them.
package cache

import (
	"context"
	"time"
)

const (
	DefaultSize = 500
	DefaultTTL  = 15 * time.Minute
)

// Store caches id lists keyed by string.
type Store interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, ids []string)
	Invalidate(ctx context.Context, keys ...string)
	Purge(ctx context.Context)
}

func clone(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
