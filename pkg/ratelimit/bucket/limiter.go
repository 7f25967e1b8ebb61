package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Limit represents the maximum frequency of events per second.
// A zero Limit allows only the initial burst. Use Inf for unlimited rates.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Every converts a minimum time interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Limiter throttles queries against a single price source using a token
// bucket. Bursts up to Burst are served immediately.
type Limiter interface {
	// Allow reports whether an event may happen now. It does not block.
	Allow() bool

	// Wait blocks until an event can happen. It returns an error
	// if the context is done first or the limiter can never admit the event.
	Wait(ctx context.Context) error

	// WaitN is Wait for n events.
	WaitN(ctx context.Context, n int) error

	// Reserve books one event and reports how long the caller must wait.
	Reserve() *Reservation

	// SetLimit changes the rate limit. It preserves the current burst size.
	SetLimit(limit Limit)

	Limit() Limit
	Burst() int

	// Tokens returns the number of tokens currently available.
	Tokens() float64
}

// Reservation holds a booked event.
type Reservation struct {
	ok        bool
	timeToAct time.Time
	tokens    int
	lim       *tokenBucket
}

// OK returns whether the reservation is valid.
func (r *Reservation) OK() bool {
	return r.ok
}

// DelayFrom returns the time until the reservation should act,
// measured from now. Invalid reservations report zero.
func (r *Reservation) DelayFrom(now time.Time) time.Duration {
	if !r.ok {
		return 0
	}
	delay := r.timeToAct.Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

// Cancel gives the reserved tokens back to the limiter.
func (r *Reservation) Cancel() {
	if !r.ok {
		return
	}
	r.lim.cancelReservation(r)
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity.
	InitialTokens int
}

type tokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// NewSafe creates a full limiter admitting rate events per second with the
// given burst.
func NewSafe(rate Limit, burst int) (Limiter, error) {
	return NewWithConfigSafe(Config{
		Rate:          rate,
		Burst:         burst,
		InitialTokens: -1,
	})
}

// NewWithConfigSafe validates config and creates a limiter from it.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if config.Rate < 0 {
		return nil, errors.NewValidationError("bucket", "rate", config.Rate, "rate cannot be negative").
			WithHint("use 0 to allow only the initial burst or a positive value")
	}
	if config.Burst <= 0 {
		return nil, errors.NewValidationError("bucket", "burst", config.Burst, "burst must be positive").
			WithHint("burst determines how many queries can start at once")
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initialTokens := float64(config.InitialTokens)
	if config.InitialTokens < 0 || config.InitialTokens > config.Burst {
		initialTokens = float64(config.Burst)
	}

	return &tokenBucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     initialTokens,
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}
