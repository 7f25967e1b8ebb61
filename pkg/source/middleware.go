package source

import (
	"context"
	"time"

	"github.com/vnykmshr/fanout/pkg/store"
)

// Limiter admits queries. bucket.Limiter and distributed.RedisLimiter
// both satisfy it.
type Limiter interface {
	Wait(ctx context.Context) error
}

type rateLimited struct {
	Source
	limiter Limiter
}

// RateLimited makes every query on src wait for a token from limiter first.
func RateLimited(src Source, limiter Limiter) Source {
	return &rateLimited{Source: src, limiter: limiter}
}

func (s *rateLimited) Query(ctx context.Context, key string) (float64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return s.Source.Query(ctx, key)
}

// Semaphore bounds in-flight queries. concurrency.Limiter satisfies it.
type Semaphore interface {
	Wait(ctx context.Context) error
	Release()
}

type bounded struct {
	Source
	sem Semaphore
}

// Bounded lets at most the semaphore's capacity of queries run against src
// at once. Waiting for a slot counts against the query's context.
func Bounded(src Source, sem Semaphore) Source {
	return &bounded{Source: src, sem: sem}
}

func (s *bounded) Query(ctx context.Context, key string) (float64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	if err := s.sem.Wait(ctx); err != nil {
		return 0, err
	}
	defer s.sem.Release()
	return s.Source.Query(ctx, key)
}

type cached struct {
	Source
	cache store.Cache
	ttl   time.Duration
}

// Cached answers from cache when it holds a fresh value for the source and
// key, and stores successful answers for ttl. Any cache error, a miss
// included, falls through to the source.
func Cached(src Source, cache store.Cache, ttl time.Duration) Source {
	return &cached{Source: src, cache: cache, ttl: ttl}
}

func (s *cached) Query(ctx context.Context, key string) (float64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	cacheKey := store.Key(s.Name(), key)
	if value, err := s.cache.Get(ctx, cacheKey); err == nil {
		return value, nil
	}

	value, err := s.Source.Query(ctx, key)
	if err != nil {
		return 0, err
	}

	// Cache writes are advisory.
	_ = s.cache.Set(ctx, cacheKey, value, s.ttl)
	return value, nil
}
