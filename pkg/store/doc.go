/*
Package store caches source quotes so repeated aggregations within a TTL do
not pay a source's latency again.

Two Cache implementations are provided:

  - MemoryCache: process-local, expiring entries, used by tests and by the
    CLI when no Redis address is configured.
  - RedisCache: shared across processes through github.com/redis/go-redis/v9.

Keys are built with Key(source, query) and look like quote:BestPrice:myPhone.
A lookup that finds nothing returns errors.ErrCacheMiss.

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	cache := store.NewRedisCache(store.RedisConfig{Redis: rdb})
	src := source.Cached(shop, cache, 30*time.Second)
*/
package store
