package bucket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/fanout/internal/testutil"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/metrics"
)

func newTestLimiter(t *testing.T, rate Limit, burst int, clock Clock) Limiter {
	t.Helper()
	limiter, err := NewWithConfigSafe(Config{Rate: rate, Burst: burst, Clock: clock, InitialTokens: -1})
	testutil.AssertNoError(t, err)
	return limiter
}

func TestNewSafe(t *testing.T) {
	tests := []struct {
		name    string
		rate    Limit
		burst   int
		wantErr bool
	}{
		{"valid parameters", 10, 5, false},
		{"zero rate", 0, 5, false},
		{"infinite rate", Inf, 5, false},
		{"negative rate", -1, 5, true},
		{"zero burst", 10, 0, true},
		{"negative burst", 10, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewSafe(tt.rate, tt.burst)
			if tt.wantErr {
				testutil.AssertError(t, err)
				testutil.AssertEqual(t, gferrors.IsValidationError(err), true)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, limiter.Burst(), tt.burst)
			testutil.AssertEqual(t, limiter.Limit(), tt.rate)
		})
	}
}

func TestEvery(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     Limit
	}{
		{time.Second, 1},
		{100 * time.Millisecond, 10},
		{2 * time.Second, 0.5},
		{0, Inf},
		{-time.Second, Inf},
	}

	for _, tt := range tests {
		testutil.AssertEqual(t, Every(tt.interval), tt.want)
	}
}

func TestAllow(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	limiter := newTestLimiter(t, 10, 3, clock)

	for i := 0; i < 3; i++ {
		testutil.AssertEqual(t, limiter.Allow(), true)
	}
	testutil.AssertEqual(t, limiter.Allow(), false)

	// One token every 100ms.
	clock.Advance(100 * time.Millisecond)
	testutil.AssertEqual(t, limiter.Allow(), true)
	testutil.AssertEqual(t, limiter.Allow(), false)

	// Refill is capped at burst.
	clock.Advance(10 * time.Second)
	testutil.AssertEqual(t, limiter.Tokens(), float64(3))
}

func TestInitialTokens(t *testing.T) {
	limiter, err := NewWithConfigSafe(Config{Rate: 1, Burst: 5, InitialTokens: 1, Clock: testutil.NewMockClock(time.Time{})})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, limiter.Allow(), true)
	testutil.AssertEqual(t, limiter.Allow(), false)
}

func TestWait(t *testing.T) {
	limiter := newTestLimiter(t, 50, 1, nil)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	testutil.AssertNoError(t, limiter.Wait(ctx))

	start := time.Now()
	testutil.AssertNoError(t, limiter.Wait(ctx))
	testutil.AssertBetween(t, time.Since(start), 10*time.Millisecond, time.Second)
}

func TestWaitDeadlineTooShort(t *testing.T) {
	limiter := newTestLimiter(t, 1, 1, nil)
	testutil.AssertEqual(t, limiter.Allow(), true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrRateLimited), true)
}

func TestWaitCanceled(t *testing.T) {
	limiter := newTestLimiter(t, 1, 1, nil)
	testutil.AssertEqual(t, limiter.Allow(), true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := limiter.Wait(ctx)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInterrupted), true)
	testutil.AssertEqual(t, errors.Is(err, context.Canceled), true)

	// The canceled reservation handed its token back.
	tokens := limiter.Tokens()
	testutil.AssertEqual(t, tokens > -0.5, true)
}

func TestWaitZeroRate(t *testing.T) {
	limiter := newTestLimiter(t, 0, 1, testutil.NewMockClock(time.Time{}))
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	testutil.AssertNoError(t, limiter.Wait(ctx))
	err := limiter.Wait(ctx)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrRateLimited), true)
}

func TestWaitNExceedsBurst(t *testing.T) {
	limiter := newTestLimiter(t, 10, 2, nil)

	err := limiter.WaitN(context.Background(), 3)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrRateLimited), true)
	testutil.AssertNoError(t, limiter.WaitN(context.Background(), 0))
}

func TestReserve(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	limiter := newTestLimiter(t, 10, 1, clock)

	r := limiter.Reserve()
	testutil.AssertEqual(t, r.OK(), true)
	testutil.AssertEqual(t, r.DelayFrom(clock.Now()), time.Duration(0))

	r = limiter.Reserve()
	testutil.AssertEqual(t, r.OK(), true)
	testutil.AssertEqual(t, r.DelayFrom(clock.Now()), 100*time.Millisecond)

	r.Cancel()
	testutil.AssertEqual(t, limiter.Tokens(), float64(0))
}

func TestSetLimit(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	limiter := newTestLimiter(t, 1, 2, clock)

	limiter.Allow()
	limiter.Allow()
	limiter.SetLimit(100)
	clock.Advance(20 * time.Millisecond)

	testutil.AssertEqual(t, limiter.Limit(), Limit(100))
	testutil.AssertEqual(t, limiter.Allow(), true)
}

func TestInfiniteRate(t *testing.T) {
	limiter := newTestLimiter(t, Inf, 1, nil)

	for i := 0; i < 100; i++ {
		testutil.AssertEqual(t, limiter.Allow(), true)
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := newTestLimiter(t, 0, 50, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.Allow() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, allowed, 50)
}

func TestMetricsLimiter(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	base := newTestLimiter(t, 0, 1, testutil.NewMockClock(time.Time{}))
	limiter := WithMetrics(base, "BestPrice", registry)

	testutil.AssertEqual(t, limiter.Allow(), true)
	testutil.AssertEqual(t, limiter.Allow(), false)
	testutil.AssertError(t, limiter.Wait(context.Background()))

	testutil.AssertEqual(t, promtest.ToFloat64(registry.RateLimitRequests.WithLabelValues("BestPrice")), float64(3))
	testutil.AssertEqual(t, promtest.ToFloat64(registry.RateLimitAllowed.WithLabelValues("BestPrice")), float64(1))
	testutil.AssertEqual(t, promtest.ToFloat64(registry.RateLimitDenied.WithLabelValues("BestPrice")), float64(2))

	testutil.AssertEqual(t, WithMetrics(base, "plain", nil), base)
}
