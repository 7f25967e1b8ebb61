/*
Package workerpool provides the fixed-size worker pool that fanout runs
source queries on.

A pool owns a fixed number of worker goroutines and a task queue. Tasks are
plain values implementing Task, or functions wrapped in TaskFunc:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		return doWork(ctx)
	})
	if err := pool.Submit(task); err != nil {
		return err
	}

	result := <-pool.Results()

Sizing:

The aggregator sizes its pool as min(sources, cap) so every source gets a
worker until the cap is reached, and makes the queue as long as the source
list so that submitting never blocks the caller.

Results:

Results are delivered on Results(). Callers that collect results through
their own channels set Config.DiscardResults so workers never wait on an
unread Results channel.

Shutdown:

Shutdown stops accepting tasks, lets queued tasks run, and closes Results
when the last worker exits. ShutdownWithTimeout additionally cancels the
context of running tasks, and fails queued ones with errors.ErrClosed, once
the timeout elapses.

Metrics:

NewWithMetrics wraps a pool so that it reports size, activity, queue depth
and task outcomes into a metrics.Registry under a pool name.
*/
package workerpool
