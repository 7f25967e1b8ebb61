/*
Package distributed provides a token bucket whose state lives in Redis.

Several fanout processes pointed at the same Redis and key share one quota,
so a shop is never queried faster than the configured rate in total:

	limiter, err := distributed.New(distributed.Config{
		Redis:    rdb,
		Key:      "fanout:ratelimit:BestPrice",
		Rate:     5,
		Burst:    2,
		Fallback: localBucket,
	})
	if err != nil {
		return err
	}
	src := source.RateLimited(shop, limiter)

Refill and reservation run in a single Lua script, so concurrent callers
never over-admit. A waiting caller keeps its reservation and sleeps
locally. When Redis fails the Fallback limiter, if any, throttles instead;
without one the query fails with a *RedisError.
*/
package distributed
