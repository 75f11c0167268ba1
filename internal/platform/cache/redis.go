package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix = "hierarchy:"
	purgeBatch  = 200
)

// Redis shares hierarchy entries between server instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient returns nil when addr is empty.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]string, bool) {
	raw, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("hierarchy cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		slog.Warn("hierarchy cache decode failed", "key", key, "err", err)
		return nil, false
	}
	return ids, true
}

func (c *Redis) Set(ctx context.Context, key string, ids []string) {
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisPrefix+key, payload, c.ttl).Err(); err != nil {
		slog.Warn("hierarchy cache set failed", "key", key, "err", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = redisPrefix + key
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		slog.Warn("hierarchy cache invalidate failed", "err", err)
	}
}

func (c *Redis) Purge(ctx context.Context) {
	if err := c.purge(ctx); err != nil {
		slog.Warn("hierarchy cache purge failed", "err", err)
	}
}

// purge deletes every hierarchy key in batches. A failed batch does not stop
// the scan; all failures are returned together.
func (c *Redis) purge(ctx context.Context) error {
	var errs []error
	del := func(keys []string) {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("delete %d keys: %w", len(keys), err))
		}
	}
	iter := c.client.Scan(ctx, 0, redisPrefix+"*", purgeBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			del(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		del(batch)
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	return errors.Join(errs...)
}
