package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/fanout/pkg/source"
)

// Config is the root configuration structure.
type Config struct {
	Sources    []SourceConfig   `yaml:"sources"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Quote      QuoteConfig      `yaml:"quote"`
	Cache      CacheConfig      `yaml:"cache"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Watch      WatchConfig      `yaml:"watch"`
}

// SourceConfig configures one simulated shop. An empty sources list means
// the five default shops. MaxConcurrent caps in-flight queries to the shop;
// zero leaves it unbounded.
type SourceConfig struct {
	Name          string   `yaml:"name"`
	Delay         Duration `yaml:"delay"`
	Jitter        Duration `yaml:"jitter"`
	Seed          uint64   `yaml:"seed"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

// UnmarshalYAML gives an omitted delay the default shop delay. An explicit
// "0s" still means the shop answers at once.
func (s *SourceConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SourceConfig
	p := plain{Delay: Duration(source.DefaultDelay)}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = SourceConfig(p)
	return nil
}

// AggregatorConfig configures the fan-out.
type AggregatorConfig struct {
	Name       string   `yaml:"name"`
	MaxWorkers int      `yaml:"max_workers"`
	Timeout    Duration `yaml:"timeout"`
}

// QuoteConfig configures the exchange and discount services.
type QuoteConfig struct {
	ExchangeDelay Duration           `yaml:"exchange_delay"`
	DiscountDelay Duration           `yaml:"discount_delay"`
	Rates         map[string]float64 `yaml:"rates"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig configures the quote cache placed in front of every source.
type CacheConfig struct {
	Type  string      `yaml:"type"`
	TTL   Duration    `yaml:"ttl"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis connection shared by the redis cache and
// the redis rate limit backend.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Prefix   string   `yaml:"prefix"`
	Timeout  Duration `yaml:"timeout"`
}

// Rate limit backends.
const (
	RateLimitLocal = "local"
	RateLimitRedis = "redis"
)

// RateLimitConfig throttles queries per source with a token bucket. The
// redis backend shares each bucket between processes using cache.redis.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Backend string  `yaml:"backend"`
	Rate    float64 `yaml:"rate"`
	Burst   int     `yaml:"burst"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint served during watch.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// WatchConfig configures periodic aggregation.
type WatchConfig struct {
	Schedule string `yaml:"schedule"`
}

// Duration is a wrapper around time.Duration for YAML parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(td)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ToDuration converts Duration to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
