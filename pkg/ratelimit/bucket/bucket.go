package bucket

import (
	"context"
	"fmt"
	"math"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Allow reports whether an event may happen now.
func (tb *tokenBucket) Allow() bool {
	return tb.reserveN(tb.clock.Now(), 1, 0).ok
}

// Wait blocks until an event can happen.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

// WaitN blocks until n events can happen. A request the bucket can never
// satisfy fails with ErrRateLimited instead of blocking forever.
func (tb *tokenBucket) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if fctx.IsCanceled(ctx) {
		return fctx.Interrupted(ctx)
	}

	maxWait := time.Duration(math.MaxInt64)
	if deadline, ok := ctx.Deadline(); ok {
		maxWait = time.Until(deadline)
	}

	now := tb.clock.Now()
	r := tb.reserveN(now, n, maxWait)
	if !r.OK() {
		return fmt.Errorf("waiting for %d tokens: %w", n, errors.ErrRateLimited)
	}

	if err := fctx.Sleep(ctx, r.DelayFrom(now)); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// Reserve returns a reservation for one event.
func (tb *tokenBucket) Reserve() *Reservation {
	return tb.reserveN(tb.clock.Now(), 1, math.MaxInt64)
}

// SetLimit changes the rate limit.
func (tb *tokenBucket) SetLimit(newLimit Limit) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	tb.limit = newLimit
}

// Limit returns the current rate limit.
func (tb *tokenBucket) Limit() Limit {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limit
}

// Burst returns the burst size.
func (tb *tokenBucket) Burst() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.burst
}

// Tokens returns the number of tokens currently available.
func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	return tb.tokens
}

// reserveN reserves n tokens at now, refusing if the caller would have to
// wait longer than maxWait.
func (tb *tokenBucket) reserveN(now time.Time, n int, maxWait time.Duration) *Reservation {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	granted := func(at time.Time) *Reservation {
		return &Reservation{ok: true, timeToAct: at, tokens: n, lim: tb}
	}
	denied := &Reservation{tokens: n, lim: tb}

	if tb.limit == Inf {
		return granted(now)
	}

	tb.updateTokens(now)

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return granted(now)
	}

	// Zero rate never refills.
	if tb.limit == 0 || n > tb.burst {
		return denied
	}

	tokensNeeded := float64(n) - tb.tokens
	waitTime := time.Duration(float64(time.Second) * tokensNeeded / float64(tb.limit))
	if waitTime > maxWait {
		return denied
	}

	// Tokens may go negative; later callers queue behind this one.
	tb.tokens -= float64(n)
	return granted(now.Add(waitTime))
}

// updateTokens adds tokens based on the time elapsed since the last update.
func (tb *tokenBucket) updateTokens(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.lastUpdate = now

	if tb.limit == 0 {
		return
	}

	tokensToAdd := elapsed.Seconds() * float64(tb.limit)
	tb.tokens = math.Min(tb.tokens+tokensToAdd, float64(tb.burst))
}

// cancelReservation restores tokens from a canceled reservation.
func (tb *tokenBucket) cancelReservation(r *Reservation) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	tb.tokens = math.Min(tb.tokens+float64(r.tokens), float64(tb.burst))
}
