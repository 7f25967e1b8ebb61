// Package context holds the small context helpers shared by sources,
// the aggregator and the combinators.
package context

import (
	"context"
	"errors"
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

// WithOptionalTimeout derives a context that expires after timeout.
// A zero or negative timeout only adds cancellation.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// Sleep blocks for d or until ctx is done. An early wake-up is reported as
// ErrInterrupted wrapping the context error.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if IsCanceled(ctx) {
			return Interrupted(ctx)
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return Interrupted(ctx)
	}
}

// Interrupted converts a finished context into an ErrInterrupted error.
func Interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", gferrors.ErrInterrupted, context.Cause(ctx))
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
