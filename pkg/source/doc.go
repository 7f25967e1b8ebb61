/*
Package source defines named price sources and the ordered registry the
aggregator fans out over.

A Source answers one query key with a price, blocking for as long as the
source needs:

	type Source interface {
		Name() string
		Query(ctx context.Context, key string) (float64, error)
	}

Shop is the simulated remote shop: it waits for its configured delay and
then derives a pseudo-random price from the key. Fixed and Func cover tests
and adapters. RateLimited and Cached decorate any Source without changing
its name.

A Registry fixes the set and order of sources once:

	registry, err := source.NewRegistry(
		source.NewShop("BestPrice"),
		source.NewShop("LetsSaveBig", source.WithDelay(500*time.Millisecond)),
	)

Registry order is the order of every aggregation result.
*/
package source
