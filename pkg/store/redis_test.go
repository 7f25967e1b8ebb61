package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/fanout/internal/testutil"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

// newTestRedis connects to FANOUT_TEST_REDIS (default localhost:6379, DB 1)
// and skips the test when no server answers.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("FANOUT_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis not available at %s, skipping", addr)
	}

	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisCache(t *testing.T) {
	rdb := newTestRedis(t)
	cache := NewRedisCache(RedisConfig{Redis: rdb, Prefix: "fanout-test"})
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	key := Key("BestPrice", t.Name())
	t.Cleanup(func() { _ = cache.Delete(context.Background(), key) })

	testutil.AssertNoError(t, cache.Ping(ctx))

	_, err := cache.Get(ctx, key)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrCacheMiss), true)

	testutil.AssertNoError(t, cache.Set(ctx, key, 162.24388753441644, time.Minute))
	value, err := cache.Get(ctx, key)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, value, 162.24388753441644)

	ttl, err := rdb.TTL(ctx, "fanout-test:"+key).Result()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ttl > 0, true)

	testutil.AssertNoError(t, cache.Delete(ctx, key))
	_, err = cache.Get(ctx, key)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrCacheMiss), true)
}

func TestRedisCacheUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer func() { _ = rdb.Close() }()

	cache := NewRedisCache(RedisConfig{Redis: rdb, Timeout: 100 * time.Millisecond})
	_, err := cache.Get(context.Background(), "a")

	var rerr *RedisError
	testutil.AssertEqual(t, errors.As(err, &rerr), true)
	testutil.AssertEqual(t, rerr.Operation, "GET")
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrCacheMiss), false)
}

func TestNewRedisCacheNilClient(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	NewRedisCache(RedisConfig{})
}
