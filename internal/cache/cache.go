// Package cache signals that cached renderings of a page path are stale.
//
// Each revalidation bumps a per-path version counter and publishes the path on
// a channel, so renderers can either poll the version or subscribe.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Channel is the pub/sub channel revalidated paths are published on.
const Channel = "revalidate"

// Revalidator marks cached renderings of a path stale.
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
	Version(ctx context.Context, path string) (int64, error)
}

type RedisRevalidator struct {
	rdb *redis.Client
}

func NewRedisRevalidator(rdb *redis.Client) *RedisRevalidator {
	return &RedisRevalidator{rdb: rdb}
}

var _ Revalidator = (*RedisRevalidator)(nil)

func versionKey(path string) string { return "revalidate:" + path }

// Revalidate is a no-op for an empty path.
func (r *RedisRevalidator) Revalidate(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, versionKey(path))
	pipe.Publish(ctx, Channel, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revalidate %s: %w", path, err)
	}
	return nil
}

// Version returns how many times path was revalidated; zero if never.
func (r *RedisRevalidator) Version(ctx context.Context, path string) (int64, error) {
	v, err := r.rdb.Get(ctx, versionKey(path)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("revalidate version %s: %w", path, err)
	}
	return v, nil
}
