// Package metrics provides Prometheus instrumentation for fanout components.
//
// A Registry is created explicitly and handed to the components that report
// into it; there is no process-wide default.
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//
//	agg, _ := aggregator.New(aggregator.Config{Registry: shops, Metrics: m})
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
// Aggregation:
//   - fanout_aggregator_aggregations_total{aggregator}
//   - fanout_aggregator_duration_seconds{aggregator}
//   - fanout_aggregator_timeouts_total{aggregator}
//   - fanout_source_queries_total{aggregator,source,status}
//   - fanout_source_query_duration_seconds{aggregator,source}
//
// Worker pools:
//   - fanout_workerpool_size{pool_name}
//   - fanout_workerpool_active_workers{pool_name}
//   - fanout_workerpool_queued_tasks{pool_name}
//   - fanout_workerpool_tasks_executed_total{pool_name}
//   - fanout_workerpool_tasks_completed_total{pool_name}
//   - fanout_workerpool_tasks_failed_total{pool_name}
//   - fanout_workerpool_task_duration_seconds{pool_name}
//
// Rate limiting, concurrency bounds and caching:
//   - fanout_ratelimit_requests_total{limiter_name}
//   - fanout_ratelimit_allowed_total{limiter_name}
//   - fanout_ratelimit_denied_total{limiter_name}
//   - fanout_ratelimit_wait_duration_seconds{limiter_name}
//   - fanout_concurrency_active{limiter_name}
//   - fanout_concurrency_waiting{limiter_name}
//   - fanout_cache_hits_total{cache}
//   - fanout_cache_misses_total{cache}
package metrics
