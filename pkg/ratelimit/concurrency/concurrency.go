package concurrency

import (
	"context"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
)

// Acquire attempts to acquire one permit without blocking.
func (cl *concurrencyLimiter) Acquire() bool {
	return cl.AcquireN(1)
}

// AcquireN attempts to acquire n permits without blocking. It fails while
// others are queued so waiters are not starved.
func (cl *concurrencyLimiter) AcquireN(n int) bool {
	if n <= 0 {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.available >= n && len(cl.waiters) == 0 {
		cl.available -= n
		cl.inUse += n
		return true
	}
	return false
}

// Wait blocks until one permit is available.
func (cl *concurrencyLimiter) Wait(ctx context.Context) error {
	return cl.WaitN(ctx, 1)
}

// WaitN blocks until n permits are available. A done ctx yields an error
// wrapping errors.ErrInterrupted and the context cause.
func (cl *concurrencyLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if fctx.IsCanceled(ctx) {
		return fctx.Interrupted(ctx)
	}

	cl.mu.Lock()

	if cl.available >= n && len(cl.waiters) == 0 {
		cl.available -= n
		cl.inUse += n
		cl.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	cl.waiters = append(cl.waiters, waiter{n: n, ready: ready, cancel: ctx.Done()})
	cl.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		if !cl.removeWaiter(ready) {
			// Granted while we were giving up; hand the permits back.
			cl.ReleaseN(n)
		}
		return fctx.Interrupted(ctx)
	}
}

// Release releases one permit back to the limiter.
func (cl *concurrencyLimiter) Release() {
	cl.ReleaseN(1)
}

// ReleaseN releases n permits back to the limiter.
func (cl *concurrencyLimiter) ReleaseN(n int) {
	if n <= 0 {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.inUse < n {
		panic("concurrency: released more permits than acquired")
	}

	cl.inUse -= n
	// Shrinking capacity leaves inUse above it until enough permits return.
	cl.available = max(0, cl.capacity-cl.inUse)
	cl.notifyWaiters()
}

// SetCapacity changes the maximum number of concurrent operations allowed.
func (cl *concurrencyLimiter) SetCapacity(capacity int) {
	if capacity <= 0 {
		panic("concurrency: capacity must be positive")
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.capacity = capacity
	cl.available = max(0, cl.capacity-cl.inUse)
	cl.notifyWaiters()
}

// Capacity returns the maximum number of concurrent operations allowed.
func (cl *concurrencyLimiter) Capacity() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.capacity
}

// Available returns the number of permits currently available.
func (cl *concurrencyLimiter) Available() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.available
}

// InUse returns the number of permits currently in use.
func (cl *concurrencyLimiter) InUse() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.inUse
}

// notifyWaiters grants permits to queued callers in order, stopping at the
// first one that cannot be served. Must be called with cl.mu held.
func (cl *concurrencyLimiter) notifyWaiters() {
	i := 0
	for ; i < len(cl.waiters); i++ {
		w := cl.waiters[i]
		select {
		case <-w.cancel:
			// WaitN removes it; skip so it cannot block the queue.
			continue
		default:
		}
		if cl.available < w.n {
			break
		}
		cl.available -= w.n
		cl.inUse += w.n
		close(w.ready)
	}
	remaining := cl.waiters[:0]
	for j, w := range cl.waiters {
		if j < i {
			select {
			case <-w.ready:
				continue
			default:
			}
		}
		remaining = append(remaining, w)
	}
	cl.waiters = remaining
}

// removeWaiter drops a waiter and reports whether it was still queued.
func (cl *concurrencyLimiter) removeWaiter(ready chan struct{}) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for i, w := range cl.waiters {
		if w.ready == ready {
			cl.waiters = append(cl.waiters[:i], cl.waiters[i+1:]...)
			return true
		}
	}
	return false
}
