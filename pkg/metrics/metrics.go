package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for fanout components.
type Registry struct {
	// Aggregation Metrics
	Aggregations        *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
	AggregationTimeouts *prometheus.CounterVec
	SourceQueries       *prometheus.CounterVec
	SourceQueryDuration *prometheus.HistogramVec

	// Worker Pool Metrics
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	WorkerPoolQueued      *prometheus.GaugeVec
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Rate Limiting Metrics
	RateLimitRequests *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec

	// Concurrency Limiting Metrics
	ConcurrencyActive  *prometheus.GaugeVec
	ConcurrencyWaiting *prometheus.GaugeVec

	// Cache Metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewRegistry creates a metrics registry in the default namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return New(Config{Enabled: true, Registry: reg, Namespace: DefaultNamespace})
}

// New creates a metrics registry from cfg. Metrics are registered with
// cfg.Registry, or with a private prometheus.Registry when it is nil.
func New(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	factory := promauto.With(reg)

	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels)
	}
	gauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels)
	}
	histogram := func(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.Labels,
		}, labels)
	}

	return &Registry{
		Aggregations:        counter("aggregator", "aggregations_total", "Total number of aggregations run", "aggregator"),
		AggregationDuration: histogram("aggregator", "duration_seconds", "Wall time of a full aggregation", "aggregator"),
		AggregationTimeouts: counter("aggregator", "timeouts_total", "Aggregations that hit their deadline", "aggregator"),
		SourceQueries:       counter("source", "queries_total", "Source queries by outcome status", "aggregator", "source", "status"),
		SourceQueryDuration: histogram("source", "query_duration_seconds", "Time spent answering a source query", "aggregator", "source"),

		WorkerPoolSize:        gauge("workerpool", "size", "Current worker pool size", "pool_name"),
		WorkerPoolActive:      gauge("workerpool", "active_workers", "Number of active workers", "pool_name"),
		WorkerPoolQueued:      gauge("workerpool", "queued_tasks", "Number of queued tasks", "pool_name"),
		TasksExecuted:         counter("workerpool", "tasks_executed_total", "Total number of tasks executed", "pool_name"),
		TasksCompleted:        counter("workerpool", "tasks_completed_total", "Total number of tasks completed successfully", "pool_name"),
		TasksFailed:           counter("workerpool", "tasks_failed_total", "Total number of tasks that failed", "pool_name"),
		TaskExecutionDuration: histogram("workerpool", "task_duration_seconds", "Time spent executing tasks", "pool_name"),

		RateLimitRequests: counter("ratelimit", "requests_total", "Total number of rate limit requests", "limiter_name"),
		RateLimitAllowed:  counter("ratelimit", "allowed_total", "Total number of allowed requests", "limiter_name"),
		RateLimitDenied:   counter("ratelimit", "denied_total", "Total number of denied requests", "limiter_name"),
		RateLimitWaitTime: histogram("ratelimit", "wait_duration_seconds", "Time spent waiting for rate limit approval", "limiter_name"),

		ConcurrencyActive:  gauge("concurrency", "active", "Permits currently held", "limiter_name"),
		ConcurrencyWaiting: gauge("concurrency", "waiting", "Callers waiting for a permit", "limiter_name"),

		CacheHits:   counter("cache", "hits_total", "Quote cache hits", "cache"),
		CacheMisses: counter("cache", "misses_total", "Quote cache misses", "cache"),
	}
}
