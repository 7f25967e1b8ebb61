/*
Package compose provides typed futures that run on a workerpool.Pool and
the two ways of joining them that price flows need:

  - Combine waits for two independent futures and merges their values,
    e.g. a price and an exchange rate.
  - Then feeds one future's value into a dependent stage, e.g. a price
    into a discount lookup.

AllOf and AnyOf wait for a whole set of futures.

	price := compose.Async(ctx, pool, func(ctx context.Context) (float64, error) {
		return shop.Query(ctx, "myPhone")
	})
	rate := compose.Async(ctx, pool, func(ctx context.Context) (float64, error) {
		return rates.Rate(ctx, "USD", "EUR")
	})
	converted, err := compose.Combine(ctx, price, rate, quote.Convert).Await(ctx)

Waiting never happens on a pool worker: joins run on their own goroutine, so
a pool with a single worker can still serve every stage.

A future submitted to a pool that is killed by ShutdownWithTimeout before the
task starts never completes; always Await with a context that ends.
*/
package compose
