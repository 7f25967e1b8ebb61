/*
Package concurrency bounds how many operations run at once.

The fanout command wraps a shop with source.Bounded so that overlapping
aggregations, such as a watch round still running when the next one
starts, never hold more than max_concurrent queries against that shop:

	limiter, err := concurrency.NewSafe(2)
	if err != nil {
		return err
	}
	src := source.Bounded(shop, concurrency.WithMetrics(limiter, "BestPrice", reg))

Waiters are served in arrival order and Acquire never jumps the queue.
A wait interrupted by its context returns an error wrapping
errors.ErrInterrupted; permits granted at that moment are handed back.
Releasing more permits than were acquired panics.
*/
package concurrency
