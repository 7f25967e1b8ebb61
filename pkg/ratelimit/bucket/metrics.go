package bucket

import (
	"context"
	"time"

	"github.com/vnykmshr/fanout/pkg/metrics"
)

// MetricsLimiter wraps a Limiter and reports admissions into a metrics
// registry under the limiter name.
type MetricsLimiter struct {
	Limiter
	name     string
	registry *metrics.Registry
}

// WithMetrics wraps limiter. A nil registry returns limiter unchanged.
func WithMetrics(limiter Limiter, name string, registry *metrics.Registry) Limiter {
	if registry == nil {
		return limiter
	}
	return &MetricsLimiter{Limiter: limiter, name: name, registry: registry}
}

// Allow reports whether an event may happen now.
func (ml *MetricsLimiter) Allow() bool {
	ml.registry.RateLimitRequests.WithLabelValues(ml.name).Inc()

	allowed := ml.Limiter.Allow()
	if allowed {
		ml.registry.RateLimitAllowed.WithLabelValues(ml.name).Inc()
	} else {
		ml.registry.RateLimitDenied.WithLabelValues(ml.name).Inc()
	}
	return allowed
}

// Wait blocks until an event can happen and records the time spent waiting.
func (ml *MetricsLimiter) Wait(ctx context.Context) error {
	return ml.WaitN(ctx, 1)
}

// WaitN is Wait for n events.
func (ml *MetricsLimiter) WaitN(ctx context.Context, n int) error {
	ml.registry.RateLimitRequests.WithLabelValues(ml.name).Add(float64(n))

	start := time.Now()
	err := ml.Limiter.WaitN(ctx, n)
	ml.registry.RateLimitWaitTime.WithLabelValues(ml.name).Observe(time.Since(start).Seconds())

	if err != nil {
		ml.registry.RateLimitDenied.WithLabelValues(ml.name).Add(float64(n))
	} else {
		ml.registry.RateLimitAllowed.WithLabelValues(ml.name).Add(float64(n))
	}
	return err
}
