package config

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/common/validation"
	"github.com/vnykmshr/fanout/pkg/logging"
	"github.com/vnykmshr/fanout/pkg/scheduling/scheduler"
)

// Validate checks configuration for errors. Every error wraps a
// *errors.ValidationError.
func Validate(cfg *Config) error {
	if err := validateSources(cfg.Sources); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	if err := validateAggregator(&cfg.Aggregator); err != nil {
		return fmt.Errorf("aggregator config: %w", err)
	}
	if err := validateQuote(&cfg.Quote); err != nil {
		return fmt.Errorf("quote config: %w", err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := validateRateLimit(&cfg.RateLimit); err != nil {
		return fmt.Errorf("ratelimit config: %w", err)
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := validateMetrics(&cfg.Metrics); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := validateWatch(&cfg.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	return nil
}

func validateSources(sources []SourceConfig) error {
	if len(sources) == 0 {
		return gferrors.NewValidationError("config", "sources", nil, "at least one source must be configured")
	}
	for i, src := range sources {
		if err := validation.ValidateNotEmpty("config", fmt.Sprintf("sources[%d].name", i), src.Name); err != nil {
			return err
		}
		if err := validation.ValidateNonNegativeDuration("config", src.Name+".delay", src.Delay.ToDuration()); err != nil {
			return err
		}
		if err := validation.ValidateNonNegativeDuration("config", src.Name+".jitter", src.Jitter.ToDuration()); err != nil {
			return err
		}
		if src.MaxConcurrent < 0 {
			return gferrors.NewValidationError("config", src.Name+".max_concurrent", src.MaxConcurrent, "cannot be negative")
		}
	}
	names := lo.Map(sources, func(s SourceConfig, _ int) string { return s.Name })
	return validation.ValidateUnique("config", "sources.name", names)
}

func validateAggregator(cfg *AggregatorConfig) error {
	if err := validation.ValidatePositive("config", "max_workers", cfg.MaxWorkers); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("config", "timeout", cfg.Timeout.ToDuration())
}

func validateQuote(cfg *QuoteConfig) error {
	if err := validation.ValidateNonNegativeDuration("config", "exchange_delay", cfg.ExchangeDelay.ToDuration()); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("config", "discount_delay", cfg.DiscountDelay.ToDuration()); err != nil {
		return err
	}
	for currency, rate := range cfg.Rates {
		if rate <= 0 {
			return gferrors.NewValidationError("config", "rates."+currency, rate, "must be positive")
		}
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	switch strings.ToLower(cfg.Type) {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if err := validation.ValidateNotEmpty("config", "redis.addr", cfg.Redis.Addr); err != nil {
			return err
		}
		if cfg.Redis.DB < 0 {
			return gferrors.NewValidationError("config", "redis.db", cfg.Redis.DB, "cannot be negative")
		}
	default:
		return gferrors.NewValidationError("config", "type", cfg.Type, "unknown cache type").
			WithHint("use none, memory or redis")
	}
	return validation.ValidateNonNegativeDuration("config", "ttl", cfg.TTL.ToDuration())
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Rate <= 0 {
		return gferrors.NewValidationError("config", "rate", cfg.Rate, "must be positive").
			WithHint("queries per second allowed for each source")
	}
	switch strings.ToLower(cfg.Backend) {
	case "", RateLimitLocal, RateLimitRedis:
	default:
		return gferrors.NewValidationError("config", "backend", cfg.Backend, "unknown rate limit backend").
			WithHint("use local or redis")
	}
	return validation.ValidatePositive("config", "burst", cfg.Burst)
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := logging.ParseLevel(cfg.Level); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	default:
		return gferrors.NewValidationError("config", "format", cfg.Format, "unknown log format").
			WithHint("use json or text")
	}
}

func validateMetrics(cfg *MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if err := validation.ValidateNotEmpty("config", "metrics.addr", cfg.Addr); err != nil {
		return err
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return gferrors.NewValidationError("config", "metrics.path", cfg.Path, "must start with /")
	}
	return nil
}

func validateWatch(cfg *WatchConfig) error {
	_, err := scheduler.ParseCron(cfg.Schedule)
	return err
}
