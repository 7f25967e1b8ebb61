package concurrency

import (
	"context"
	"sync"

	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Limiter bounds how many queries may be in flight against one source at a
// time. It is a semaphore with context-aware waiting.
type Limiter interface {
	// Acquire takes a permit if one is free. It does not block.
	Acquire() bool

	// AcquireN takes n permits if all are free. It does not block.
	AcquireN(n int) bool

	// Wait blocks until a permit is free or ctx is done.
	Wait(ctx context.Context) error

	// WaitN blocks until n permits are free or ctx is done.
	WaitN(ctx context.Context, n int) error

	// Release returns one permit.
	// It panics if more permits are released than were acquired.
	Release()

	// ReleaseN returns n permits.
	ReleaseN(n int)

	// SetCapacity changes the number of permits. A lower capacity takes
	// effect as held permits are released.
	SetCapacity(capacity int)

	Capacity() int
	Available() int
	InUse() int
}

// Config holds configuration options for creating a new concurrency Limiter.
type Config struct {
	// Capacity is the maximum number of concurrent operations allowed.
	Capacity int

	// InitialAvailable is the initial number of available permits.
	// If negative or greater than Capacity, defaults to Capacity.
	InitialAvailable int
}

type concurrencyLimiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []waiter
}

// waiter is a caller blocked in WaitN, served in arrival order.
type waiter struct {
	n      int
	ready  chan struct{}
	cancel <-chan struct{}
}

// NewSafe creates a limiter with capacity permits.
func NewSafe(capacity int) (Limiter, error) {
	return NewWithConfigSafe(Config{
		Capacity:         capacity,
		InitialAvailable: -1,
	})
}

// NewWithConfigSafe creates a limiter from config.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if config.Capacity <= 0 {
		return nil, errors.NewValidationError("concurrency", "capacity", config.Capacity, "capacity must be positive").
			WithHint("the number of queries a source may answer at once")
	}

	initialAvailable := config.InitialAvailable
	if config.InitialAvailable < 0 || config.InitialAvailable > config.Capacity {
		initialAvailable = config.Capacity
	}

	return &concurrencyLimiter{
		capacity:  config.Capacity,
		available: initialAvailable,
		inUse:     config.Capacity - initialAvailable,
	}, nil
}
