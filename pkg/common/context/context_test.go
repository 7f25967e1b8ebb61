package context

import (
	"context"
	"errors"
	"testing"
	"time"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

func TestSleep(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		start := time.Now()
		if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("woke after %v, want >= 20ms", elapsed)
		}
	})

	t.Run("interrupted by deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := Sleep(ctx, time.Second)
		if !errors.Is(err, gferrors.ErrInterrupted) {
			t.Fatalf("expected ErrInterrupted, got %v", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected the deadline to be wrapped, got %v", err)
		}
	})

	t.Run("zero duration on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestWithOptionalTimeout(t *testing.T) {
	ctx, cancel := WithOptionalTimeout(context.Background(), 0)
	if _, ok := ctx.Deadline(); ok {
		t.Error("zero timeout should not set a deadline")
	}
	cancel()
	if !IsCanceled(ctx) {
		t.Error("cancel should cancel the derived context")
	}
	if IsTimedOut(ctx) {
		t.Error("canceled context is not timed out")
	}

	ctx, cancel = WithOptionalTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	<-ctx.Done()
	if !IsTimedOut(ctx) {
		t.Error("expected timed out context")
	}
}
