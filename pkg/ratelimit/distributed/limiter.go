package distributed

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/metrics"
)

// Fallback is the local limiter used while Redis is unreachable.
// bucket.Limiter satisfies it.
type Fallback interface {
	WaitN(ctx context.Context, n int) error
}

// Config holds configuration for a Redis-backed token bucket.
type Config struct {
	// Redis client for coordination. Required.
	Redis redis.UniversalClient

	// Key names the bucket. Every process using the same key shares it.
	Key string

	// Rate is the number of tokens added per second.
	Rate float64

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Fallback, when set, throttles locally if Redis fails.
	Fallback Fallback

	// RedisTimeout bounds each Redis round trip (default 500ms).
	RedisTimeout time.Duration

	// KeyTTL is how long an idle bucket survives in Redis (default 1h).
	KeyTTL time.Duration

	// Name and Metrics label the Prometheus counters. Metrics is optional.
	Name    string
	Metrics *metrics.Registry
}

// Reservation is the answer of one reservation attempt.
type Reservation struct {
	OK     bool
	Delay  time.Duration
	Tokens float64 // Left in the bucket, negative while reservations are pending
}

// RedisLimiter is a token bucket whose state lives in Redis, so several
// fanout processes can share one quota per source.
type RedisLimiter struct {
	config Config
	script *redis.Script
}

// New validates config and creates a limiter. It does not contact Redis.
func New(config Config) (*RedisLimiter, error) {
	if config.Redis == nil {
		return nil, gferrors.NewValidationError("distributed", "redis", nil, "client is required")
	}
	if config.Key == "" {
		return nil, gferrors.NewValidationError("distributed", "key", config.Key, "cannot be empty")
	}
	if config.Rate <= 0 || math.IsInf(config.Rate, 0) || math.IsNaN(config.Rate) {
		return nil, gferrors.NewValidationError("distributed", "rate", config.Rate, "must be a positive number")
	}
	if config.Burst <= 0 {
		return nil, gferrors.NewValidationError("distributed", "burst", config.Burst, "must be positive")
	}
	if config.RedisTimeout <= 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.KeyTTL <= 0 {
		config.KeyTTL = time.Hour
	}
	if config.Name == "" {
		config.Name = config.Key
	}

	return &RedisLimiter{
		config: config,
		script: redis.NewScript(luaReserve),
	}, nil
}

// Wait blocks until an event can happen.
func (rl *RedisLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n events can happen. Like the local bucket, a request
// that cannot be granted before ctx's deadline fails at once with
// ErrRateLimited.
func (rl *RedisLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if fctx.IsCanceled(ctx) {
		return fctx.Interrupted(ctx)
	}

	start := time.Now()
	err := rl.waitN(ctx, n)
	rl.record(n, time.Since(start), err)
	return err
}

func (rl *RedisLimiter) waitN(ctx context.Context, n int) error {
	maxWait := time.Duration(-1)
	if deadline, ok := ctx.Deadline(); ok {
		maxWait = time.Until(deadline)
	}

	r, err := rl.reserve(ctx, n, maxWait)
	if err != nil {
		if rl.config.Fallback != nil {
			return rl.config.Fallback.WaitN(ctx, n)
		}
		return err
	}
	if !r.OK {
		return fmt.Errorf("waiting for %d tokens on %s: %w", n, rl.config.Key, gferrors.ErrRateLimited)
	}

	// Reserved tokens stay spent if ctx ends first.
	return fctx.Sleep(ctx, r.Delay)
}

// Allow reports whether an event may happen now. Redis errors deny.
func (rl *RedisLimiter) Allow(ctx context.Context) bool {
	r, err := rl.reserve(ctx, 1, 0)
	allowed := err == nil && r.OK
	if allowed {
		rl.record(1, 0, nil)
	} else {
		rl.record(1, 0, gferrors.ErrRateLimited)
	}
	return allowed
}

// Reserve claims n tokens, waiting at most maxWait for them. A negative
// maxWait waits as long as needed.
func (rl *RedisLimiter) Reserve(ctx context.Context, n int, maxWait time.Duration) (*Reservation, error) {
	return rl.reserve(ctx, n, maxWait)
}

func (rl *RedisLimiter) reserve(ctx context.Context, n int, maxWait time.Duration) (*Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, rl.config.RedisTimeout)
	defer cancel()

	maxWaitSeconds := -1.0
	if maxWait >= 0 {
		maxWaitSeconds = maxWait.Seconds()
	}

	result, err := rl.script.Run(ctx, rl.config.Redis, []string{rl.config.Key},
		n,
		timeToFloat(time.Now()),
		rl.config.Rate,
		rl.config.Burst,
		maxWaitSeconds,
		rl.config.KeyTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, &RedisError{Operation: "reserve", Key: rl.config.Key, Err: err}
	}
	if len(result) != 3 {
		return nil, &RedisError{Operation: "reserve", Key: rl.config.Key, Err: fmt.Errorf("unexpected script result %v", result)}
	}

	allowed, _ := result[0].(int64)
	tokens, _ := strconv.ParseFloat(fmt.Sprint(result[1]), 64)
	delay, _ := strconv.ParseFloat(fmt.Sprint(result[2]), 64)

	return &Reservation{
		OK:     allowed == 1,
		Delay:  time.Duration(delay * float64(time.Second)),
		Tokens: tokens,
	}, nil
}

// Reset deletes the shared bucket state.
func (rl *RedisLimiter) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rl.config.RedisTimeout)
	defer cancel()

	if err := rl.config.Redis.Del(ctx, rl.config.Key).Err(); err != nil {
		return &RedisError{Operation: "reset", Key: rl.config.Key, Err: err}
	}
	return nil
}

func (rl *RedisLimiter) record(n int, waited time.Duration, err error) {
	reg := rl.config.Metrics
	if reg == nil {
		return
	}
	reg.RateLimitRequests.WithLabelValues(rl.config.Name).Add(float64(n))
	reg.RateLimitWaitTime.WithLabelValues(rl.config.Name).Observe(waited.Seconds())
	if err != nil {
		reg.RateLimitDenied.WithLabelValues(rl.config.Name).Add(float64(n))
	} else {
		reg.RateLimitAllowed.WithLabelValues(rl.config.Name).Add(float64(n))
	}
}

// RedisError represents a failed Redis operation.
type RedisError struct {
	Operation string
	Key       string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + " " + e.Key + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}
