package store

import (
	"context"
	"errors"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/metrics"
)

// metricsCache counts hits and misses of the wrapped Cache.
type metricsCache struct {
	Cache
	name     string
	registry *metrics.Registry
}

// WithMetrics wraps cache so lookups are counted under name. A nil registry
// returns cache unchanged.
func WithMetrics(cache Cache, name string, registry *metrics.Registry) Cache {
	if registry == nil {
		return cache
	}
	return &metricsCache{Cache: cache, name: name, registry: registry}
}

func (c *metricsCache) Get(ctx context.Context, key string) (float64, error) {
	value, err := c.Cache.Get(ctx, key)
	switch {
	case err == nil:
		c.registry.CacheHits.WithLabelValues(c.name).Inc()
	case errors.Is(err, gferrors.ErrCacheMiss):
		c.registry.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return value, err
}
