// Package config loads the YAML configuration for the fanout command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/fanout/pkg/aggregator"
	"github.com/vnykmshr/fanout/pkg/source"
	"github.com/vnykmshr/fanout/pkg/store"
)

// Defaults for optional fields.
const (
	DefaultTimeout       = 3 * time.Second
	DefaultCacheTTL      = 30 * time.Second
	DefaultRedisAddr     = "localhost:6379"
	DefaultMetricsAddr   = ":9091"
	DefaultMetricsPath   = "/metrics"
	DefaultWatchSchedule = "@every 10s"
)

// Load loads configuration from a YAML file. ${VAR} references are
// expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = make([]SourceConfig, len(source.DefaultShopNames))
		for i, name := range source.DefaultShopNames {
			cfg.Sources[i] = SourceConfig{Name: name, Delay: Duration(source.DefaultDelay)}
		}
	}

	if cfg.Aggregator.Name == "" {
		cfg.Aggregator.Name = aggregator.DefaultName
	}
	if cfg.Aggregator.MaxWorkers == 0 {
		cfg.Aggregator.MaxWorkers = aggregator.DefaultMaxWorkers
	}
	if cfg.Aggregator.Timeout == 0 {
		cfg.Aggregator.Timeout = Duration(DefaultTimeout)
	}

	if cfg.Quote.ExchangeDelay == 0 {
		cfg.Quote.ExchangeDelay = Duration(source.DefaultDelay)
	}
	if cfg.Quote.DiscountDelay == 0 {
		cfg.Quote.DiscountDelay = Duration(source.DefaultDelay)
	}

	if cfg.Cache.Type == "" {
		cfg.Cache.Type = CacheNone
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "fanout"
	}
	if cfg.Cache.Redis.Timeout == 0 {
		cfg.Cache.Redis.Timeout = Duration(store.DefaultRedisTimeout)
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 1
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = RateLimitLocal
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Watch.Schedule == "" {
		cfg.Watch.Schedule = DefaultWatchSchedule
	}
}
