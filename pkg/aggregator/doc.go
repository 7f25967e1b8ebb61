/*
Package aggregator queries every source in a registry concurrently and
returns their answers in registry order.

An Aggregator owns (or borrows) a bounded worker pool. Aggregate submits one
task per source, then waits until every slot is filled, the configured
timeout elapses, or the caller's context ends:

	agg, err := aggregator.New(aggregator.Config{
		Registry: registry,
		Timeout:  1500 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer agg.Close()

	report, err := agg.Aggregate(ctx, "myPhone")
	for _, line := range report.Strings() {
		fmt.Println(line)
	}

Every call yields exactly one Outcome per source. A source that fails only
marks its own slot StatusFailed. When time runs out the unanswered slots are
marked StatusTimedOut and Aggregate also returns an
*errors.AggregationTimeoutError, which matches errors.ErrTimeout. Queries
still running at that point are canceled.

Converted and Discounted run the same fan-out with a two-step flow per
source: a price combined with an exchange rate, or a price fed into a
discount lookup.

# Pool sizing

An owned pool has min(sources, MaxWorkers) workers and a queue large enough
for one task per source, so submission never blocks. A caller-supplied pool
must be created with DiscardResults (or have its Results drained), and the
caller remains responsible for shutting it down.
*/
package aggregator
