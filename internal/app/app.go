// Package app wires configuration into the components behind the fanout
// command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/fanout/pkg/aggregator"
	"github.com/vnykmshr/fanout/pkg/config"
	"github.com/vnykmshr/fanout/pkg/logging"
	"github.com/vnykmshr/fanout/pkg/metrics"
	"github.com/vnykmshr/fanout/pkg/quote"
	"github.com/vnykmshr/fanout/pkg/ratelimit/bucket"
	"github.com/vnykmshr/fanout/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/fanout/pkg/ratelimit/distributed"
	"github.com/vnykmshr/fanout/pkg/source"
	"github.com/vnykmshr/fanout/pkg/store"
)

// App holds the wired components for one command invocation.
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Metrics    *metrics.Registry
	Registry   *source.Registry
	Aggregator *aggregator.Aggregator
	Exchange   *quote.ExchangeService
	Discounts  *quote.DiscountService

	gatherer prometheus.Gatherer
	redis    *redis.Client
}

// New validates cfg and builds an App. logger may be nil.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.NewRegistry(promRegistry),
		Exchange:  quote.NewExchangeService(cfg.Quote.ExchangeDelay.ToDuration(), cfg.Quote.Rates),
		Discounts: quote.NewDiscountService(cfg.Quote.DiscountDelay.ToDuration()),
		gatherer:  promRegistry,
	}

	cache, err := a.buildCache()
	if err != nil {
		return nil, err
	}

	registry, err := a.buildRegistry(cache)
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.Registry = registry

	agg, err := aggregator.New(aggregator.Config{
		Registry:   registry,
		MaxWorkers: cfg.Aggregator.MaxWorkers,
		Timeout:    cfg.Aggregator.Timeout.ToDuration(),
		Name:       cfg.Aggregator.Name,
		Logger:     logger,
		Metrics:    a.Metrics,
	})
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.Aggregator = agg

	logger.Debug("app ready",
		"sources", strings.Join(registry.Names(), ","),
		"cache", cfg.Cache.Type,
		"ratelimit", cfg.RateLimit.Enabled)
	return a, nil
}

// Gatherer exposes the Prometheus registry the components report into.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}

// Close releases the aggregator pool and the Redis connection.
func (a *App) Close() error {
	if a.Aggregator != nil {
		a.Aggregator.Close()
	}
	return a.closeRedis()
}

func (a *App) closeRedis() error {
	if a.redis == nil {
		return nil
	}
	err := a.redis.Close()
	a.redis = nil
	return err
}

// redisClient connects on first use; the cache and the rate limiter share
// the connection.
func (a *App) redisClient() *redis.Client {
	if a.redis == nil {
		cfg := a.Config.Cache.Redis
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return a.redis
}

func (a *App) buildCache() (store.Cache, error) {
	cfg := a.Config.Cache

	var cache store.Cache
	switch strings.ToLower(cfg.Type) {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		cache = store.NewMemoryCache(nil)
	case config.CacheRedis:
		cache = store.NewRedisCache(store.RedisConfig{
			Redis:   a.redisClient(),
			Prefix:  cfg.Redis.Prefix,
			Timeout: cfg.Redis.Timeout.ToDuration(),
		})
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}

	return store.WithMetrics(cache, cfg.Type, a.Metrics), nil
}

// buildRegistry creates one shop per configured source, wrapped from the
// inside out in its concurrency bound, rate limit and cache, so cache hits
// never spend tokens or slots.
func (a *App) buildRegistry(cache store.Cache) (*source.Registry, error) {
	sources := make([]source.Source, 0, len(a.Config.Sources))

	for _, sc := range a.Config.Sources {
		opts := []source.ShopOption{
			source.WithDelay(sc.Delay.ToDuration()),
			source.WithJitter(sc.Jitter.ToDuration()),
		}
		if sc.Seed != 0 {
			opts = append(opts, source.WithSeed(sc.Seed))
		}

		var src source.Source = source.NewShop(sc.Name, opts...)

		if sc.MaxConcurrent > 0 {
			sem, err := concurrency.NewSafe(sc.MaxConcurrent)
			if err != nil {
				return nil, fmt.Errorf("concurrency limit for %s: %w", sc.Name, err)
			}
			src = source.Bounded(src, concurrency.WithMetrics(sem, sc.Name, a.Metrics))
		}

		if a.Config.RateLimit.Enabled {
			limiter, err := a.buildLimiter(sc.Name)
			if err != nil {
				return nil, fmt.Errorf("rate limiter for %s: %w", sc.Name, err)
			}
			src = source.RateLimited(src, limiter)
		}

		if cache != nil {
			src = source.Cached(src, cache, a.Config.Cache.TTL.ToDuration())
		}

		sources = append(sources, src)
	}

	return source.NewRegistry(sources...)
}

// buildLimiter returns the token bucket for one source. With the redis
// backend the local bucket only takes over while Redis is unreachable.
func (a *App) buildLimiter(name string) (source.Limiter, error) {
	rl := a.Config.RateLimit

	local, err := bucket.NewSafe(bucket.Limit(rl.Rate), rl.Burst)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(rl.Backend, config.RateLimitRedis) {
		return bucket.WithMetrics(local, name, a.Metrics), nil
	}

	return distributed.New(distributed.Config{
		Redis:        a.redisClient(),
		Key:          a.Config.Cache.Redis.Prefix + ":ratelimit:" + name,
		Rate:         rl.Rate,
		Burst:        rl.Burst,
		Fallback:     local,
		RedisTimeout: a.Config.Cache.Redis.Timeout.ToDuration(),
		Name:         name,
		Metrics:      a.Metrics,
	})
}

// Ping checks the backing services. It succeeds when nothing external is
// configured.
func (a *App) Ping(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", a.Config.Cache.Redis.Addr, err)
	}
	return nil
}

// PrintReport writes one line per outcome.
func PrintReport(w io.Writer, report aggregator.Report) error {
	var errs []error
	for _, line := range report.Strings() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
