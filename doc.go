/*
Package fanout queries many price sources at once and collects one answer
per source, in registry order, within a deadline.

Building blocks (pkg/):
  - source: the Source interface, mock shops, the ordered Registry and
    middleware for rate limits, concurrency bounds and caching
  - aggregator: the fan-out itself, plus conversion and discount flows
  - compose: futures for pairwise combination and dependent chains
  - quote: exchange rates, discount codes and price formatting
  - scheduling: the worker pool that runs queries and the scheduler behind
    periodic refreshes
  - ratelimit: local token buckets, Redis-shared buckets and semaphores
  - store: in-memory and Redis quote caches
  - config, logging, metrics: the ambient stack of the fanout command

Example usage:

	import (
		"github.com/vnykmshr/fanout/pkg/aggregator"
		"github.com/vnykmshr/fanout/pkg/source"
	)

	registry, err := source.NewRegistry(source.DefaultShops()...)
	if err != nil {
		return err
	}

	agg, err := aggregator.New(aggregator.Config{Registry: registry, Timeout: 3 * time.Second})
	if err != nil {
		return err
	}
	defer agg.Close()

	lines, err := agg.Prices(ctx, "myPhone27S")

The fanout command (cmd/fanout) wires the same pieces from a YAML file.
*/
package fanout
