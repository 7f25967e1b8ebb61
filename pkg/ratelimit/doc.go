/*
Package ratelimit holds the limiters used to throttle price sources.

The bucket subpackage provides a token bucket that lets a burst of queries
through and then refills at a steady rate:

	limiter, err := bucket.NewSafe(bucket.Every(200*time.Millisecond), 2)
	if err != nil {
		return err
	}
	src := source.RateLimited(shop, limiter)

Wait blocks the querying worker until a token is available, so a throttled
source simply answers later and the aggregator's timeout still applies.

The distributed subpackage keeps the same bucket in Redis so several
processes share one quota, and concurrency caps in-flight queries per
source through source.Bounded.
*/
package ratelimit
