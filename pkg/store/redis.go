package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

// DefaultRedisTimeout bounds a single Redis round trip.
const DefaultRedisTimeout = 500 * time.Millisecond

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	// Redis client shared with the rest of the process.
	Redis redis.UniversalClient

	// Prefix is prepended to every key, separated by a colon. Optional.
	Prefix string

	// Timeout bounds each Redis operation. Defaults to DefaultRedisTimeout.
	Timeout time.Duration
}

// RedisCache is a Cache backed by Redis string keys with native expiry.
type RedisCache struct {
	config RedisConfig
}

// NewRedisCache creates a RedisCache. It panics on a nil client.
func NewRedisCache(config RedisConfig) *RedisCache {
	if config.Redis == nil {
		panic("store: redis client cannot be nil")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRedisTimeout
	}
	return &RedisCache{config: config}
}

// RedisError represents a failed Redis operation.
type RedisError struct {
	Operation string
	Key       string
	Err       error
}

func (e *RedisError) Error() string {
	return fmt.Sprintf("redis %s %s: %v", e.Operation, e.Key, e.Err)
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

func (c *RedisCache) key(key string) string {
	if c.config.Prefix == "" {
		return key
	}
	return c.config.Prefix + ":" + key
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	raw, err := c.config.Redis.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, gferrors.ErrCacheMiss
	}
	if err != nil {
		return 0, &RedisError{"GET", key, err}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &RedisError{"GET", key, err}
	}
	return value, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value float64, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if err := c.config.Redis.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return &RedisError{"SET", key, err}
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.config.Redis.Del(ctx, c.key(key)).Err(); err != nil {
		return &RedisError{"DEL", key, err}
	}
	return nil
}

// Ping checks that the Redis server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.config.Redis.Ping(ctx).Err(); err != nil {
		return &RedisError{"PING", "", err}
	}
	return nil
}
