package concurrency

import (
	"context"

	"github.com/vnykmshr/fanout/pkg/metrics"
)

// MetricsLimiter wraps a Limiter and reports held permits and waiting
// callers under the limiter name.
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
	ml := &MetricsLimiter{Limiter: limiter, name: name, registry: registry}
	ml.update()
	return ml
}

func (ml *MetricsLimiter) update() {
	ml.registry.ConcurrencyActive.WithLabelValues(ml.name).Set(float64(ml.Limiter.InUse()))
}

// AcquireN attempts to acquire n permits without blocking.
func (ml *MetricsLimiter) AcquireN(n int) bool {
	ok := ml.Limiter.AcquireN(n)
	ml.update()
	return ok
}

// Acquire attempts to acquire one permit without blocking.
func (ml *MetricsLimiter) Acquire() bool {
	return ml.AcquireN(1)
}

// Wait blocks until one permit is available.
func (ml *MetricsLimiter) Wait(ctx context.Context) error {
	return ml.WaitN(ctx, 1)
}

// WaitN blocks until n permits are available.
func (ml *MetricsLimiter) WaitN(ctx context.Context, n int) error {
	waiting := ml.registry.ConcurrencyWaiting.WithLabelValues(ml.name)
	waiting.Inc()
	err := ml.Limiter.WaitN(ctx, n)
	waiting.Dec()
	ml.update()
	return err
}

// Release releases one permit back to the limiter.
func (ml *MetricsLimiter) Release() {
	ml.ReleaseN(1)
}

// ReleaseN releases n permits back to the limiter.
func (ml *MetricsLimiter) ReleaseN(n int) {
	ml.Limiter.ReleaseN(n)
	ml.update()
}

// SetCapacity changes the maximum number of concurrent operations allowed.
func (ml *MetricsLimiter) SetCapacity(capacity int) {
	ml.Limiter.SetCapacity(capacity)
	ml.update()
}
