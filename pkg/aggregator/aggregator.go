package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/common/validation"
	"github.com/vnykmshr/fanout/pkg/logging"
	"github.com/vnykmshr/fanout/pkg/metrics"
	"github.com/vnykmshr/fanout/pkg/scheduling/workerpool"
	"github.com/vnykmshr/fanout/pkg/source"
)

// DefaultMaxWorkers caps the size of an owned pool.
const DefaultMaxWorkers = 100

// DefaultName labels logs and metrics when Config.Name is empty.
const DefaultName = "fanout"

// Config configures an Aggregator.
type Config struct {
	// Registry lists the sources to query. Required.
	Registry *source.Registry

	// Pool runs the queries. When nil the aggregator creates and owns a
	// pool of min(Registry.Len(), MaxWorkers) workers.
	Pool workerpool.Pool

	// MaxWorkers caps an owned pool. Zero means DefaultMaxWorkers.
	MaxWorkers int

	// Timeout bounds each aggregation. Zero means wait for every source,
	// or for the caller's deadline.
	Timeout time.Duration

	// Name labels logs and metrics.
	Name string

	// Logger is optional.
	Logger *logging.Logger

	// Metrics is optional.
	Metrics *metrics.Registry
}

// Aggregator fans a query out over a registry of sources.
type Aggregator struct {
	registry *source.Registry
	pool     workerpool.Pool
	ownsPool bool
	timeout  time.Duration
	name     string
	logger   *logging.Logger
	metrics  *metrics.Registry

	closed    atomic.Bool
	closeOnce sync.Once
}

// New validates cfg and creates an Aggregator.
func New(cfg Config) (*Aggregator, error) {
	if cfg.Registry == nil {
		return nil, gferrors.NewValidationError("aggregator", "registry", nil, "cannot be nil").
			WithHint("build one with source.NewRegistry")
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if err := validation.ValidatePositive("aggregator", "max_workers", cfg.MaxWorkers); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("aggregator", "timeout", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	a := &Aggregator{
		registry: cfg.Registry,
		pool:     cfg.Pool,
		timeout:  cfg.Timeout,
		name:     cfg.Name,
		logger:   cfg.Logger.With("aggregator", cfg.Name),
		metrics:  cfg.Metrics,
	}

	if a.pool == nil {
		n := cfg.Registry.Len()
		a.pool = workerpool.NewWithMetrics(workerpool.Config{
			WorkerCount:    min(n, cfg.MaxWorkers),
			QueueSize:      n,
			DiscardResults: true,
		}, cfg.Name, cfg.Metrics)
		a.ownsPool = true
	}

	a.logger.Debug("aggregator ready", "sources", cfg.Registry.Len(), "workers", a.pool.Size(), "timeout", a.timeout)
	return a, nil
}

// Registry returns the sources this aggregator queries.
func (a *Aggregator) Registry() *source.Registry {
	return a.registry
}

// Timeout returns the per-aggregation timeout.
func (a *Aggregator) Timeout() time.Duration {
	return a.timeout
}

// Close shuts down an owned pool and waits for it to drain. It is safe to
// call more than once. Aggregations started after Close fail every slot
// with errors.ErrClosed.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if a.ownsPool {
			<-a.pool.Shutdown()
		}
	})
}

// Aggregate queries every source for query and returns one outcome per
// source in registry order. The error is nil when every slot was settled,
// an *errors.AggregationTimeoutError when time ran out, or the caller's
// context error when ctx was canceled.
func (a *Aggregator) Aggregate(ctx context.Context, query string) (Report, error) {
	return a.run(ctx, query, func(ctx context.Context, src source.Source) (float64, error) {
		return src.Query(ctx, query)
	})
}

// Prices runs Aggregate and renders the outcomes as display lines.
func (a *Aggregator) Prices(ctx context.Context, query string) ([]string, error) {
	report, err := a.Aggregate(ctx, query)
	return report.Strings(), err
}

// queryFunc produces one source's value for the current aggregation.
type queryFunc func(ctx context.Context, src source.Source) (float64, error)

type slotResult struct {
	index    int
	value    float64
	err      error
	duration time.Duration
}

func (a *Aggregator) run(ctx context.Context, query string, fn queryFunc) (Report, error) {
	start := time.Now()
	sources := a.registry.Sources()
	report := Report{Query: query, Outcomes: make([]Outcome, len(sources))}
	for i, src := range sources {
		report.Outcomes[i] = Outcome{Source: src.Name(), Query: query}
	}

	if err := source.ValidateKey(query); err != nil {
		a.failAll(&report, err)
		a.finish(&report, start, false)
		return report, err
	}
	if a.closed.Load() {
		a.failAll(&report, fmt.Errorf("aggregator %s: %w", a.name, gferrors.ErrClosed))
		a.finish(&report, start, false)
		return report, nil
	}

	runCtx, cancel := fctx.WithOptionalTimeout(ctx, a.timeout)
	defer cancel()

	// One slot per source; tasks never block on send.
	results := make(chan slotResult, len(sources))
	settled := make([]bool, len(sources))
	pending := 0

	for i, src := range sources {
		task := workerpool.TaskFunc(func(taskCtx context.Context) (err error) {
			begin := time.Now()
			var value float64
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("source panicked: %v", r)
				}
				results <- slotResult{index: i, value: value, err: err, duration: time.Since(begin)}
			}()
			if taskCtx.Err() != nil {
				// Deadline passed or pool killed while queued.
				err = fctx.Interrupted(taskCtx)
				return err
			}
			value, err = fn(taskCtx, src)
			return err
		})

		if err := a.pool.SubmitWithContext(runCtx, task); err != nil {
			a.settle(&report, runCtx, slotResult{index: i, err: err})
			settled[i] = true
			continue
		}
		pending++
	}

	collect := func(r slotResult) {
		a.settle(&report, runCtx, r)
		settled[r.index] = true
		pending--
	}

wait:
	for pending > 0 {
		select {
		case r := <-results:
			collect(r)
		case <-runCtx.Done():
			break wait
		}
	}

	// Keep answers that raced with the deadline.
	for drained := false; pending > 0 && !drained; {
		select {
		case r := <-results:
			collect(r)
		default:
			drained = true
		}
	}

	var err error
	if pending > 0 {
		waited := time.Since(start)
		canceled := errors.Is(ctx.Err(), context.Canceled)
		for i := range report.Outcomes {
			if settled[i] {
				continue
			}
			o := &report.Outcomes[i]
			o.Duration = waited
			if canceled {
				o.Status = StatusFailed
				o.Err = gferrors.NewSourceError(o.Source, query, ctx.Err())
			} else {
				o.Status = StatusTimedOut
				o.Err = gferrors.ErrTimeout
			}
		}

		if canceled {
			err = ctx.Err()
		} else {
			err = a.timeoutError(ctx, report.Pending())
		}
	} else if names := report.Pending(); len(names) > 0 {
		// Every source answered, but some only with an interrupted wait.
		err = a.timeoutError(ctx, names)
	} else if errors.Is(ctx.Err(), context.Canceled) && len(report.Failed()) > 0 {
		err = ctx.Err()
	}

	a.finish(&report, start, errors.Is(err, gferrors.ErrTimeout))
	return report, err
}

// settle fills one slot from a task result. Errors caused by the
// aggregation deadline count as timeouts rather than source failures.
func (a *Aggregator) settle(report *Report, runCtx context.Context, r slotResult) {
	o := &report.Outcomes[r.index]
	o.Duration = r.duration

	switch {
	case r.err == nil:
		o.Status = StatusOK
		o.Value = r.value
	case fctx.IsTimedOut(runCtx) && errors.Is(r.err, context.DeadlineExceeded):
		o.Status = StatusTimedOut
		o.Err = gferrors.ErrTimeout
	default:
		o.Status = StatusFailed
		o.Err = gferrors.NewSourceError(o.Source, report.Query, r.err)
	}
}

func (a *Aggregator) failAll(report *Report, err error) {
	for i := range report.Outcomes {
		report.Outcomes[i].Status = StatusFailed
		report.Outcomes[i].Err = gferrors.NewSourceError(report.Outcomes[i].Source, report.Query, err)
	}
}

func (a *Aggregator) timeoutError(ctx context.Context, pending []string) error {
	timeout := a.timeout
	if fctx.IsTimedOut(ctx) {
		// The caller's deadline fired, not ours.
		timeout = 0
	}
	return &gferrors.AggregationTimeoutError{Timeout: timeout, Pending: pending}
}

// finish records metrics and logs for a completed aggregation.
func (a *Aggregator) finish(report *Report, start time.Time, timedOut bool) {
	report.Elapsed = time.Since(start)

	for _, o := range report.Outcomes {
		switch o.Status {
		case StatusOK:
			a.logger.Debug("source answered", "source", o.Source, "query", o.Query, "value", o.Value, "duration", o.Duration)
		case StatusTimedOut:
			a.logger.Warn("source timed out", "source", o.Source, "query", o.Query, "waited", o.Duration)
		default:
			a.logger.Warn("source failed", "source", o.Source, "query", o.Query, "error", o.Err,
				"retryable", gferrors.IsRetryable(o.Err))
		}

		if a.metrics != nil {
			a.metrics.SourceQueries.WithLabelValues(a.name, o.Source, o.Status.String()).Inc()
			if o.Status != StatusTimedOut {
				a.metrics.SourceQueryDuration.WithLabelValues(a.name, o.Source).Observe(o.Duration.Seconds())
			}
		}
	}

	if a.metrics != nil {
		a.metrics.Aggregations.WithLabelValues(a.name).Inc()
		a.metrics.AggregationDuration.WithLabelValues(a.name).Observe(report.Elapsed.Seconds())
		if timedOut {
			a.metrics.AggregationTimeouts.WithLabelValues(a.name).Inc()
		}
	}

	a.logger.Info("aggregation finished",
		"query", report.Query,
		"sources", len(report.Outcomes),
		"ok", len(report.OK()),
		"failed", len(report.Failed()),
		"elapsed", report.Elapsed)
}
