package compose

import (
	"context"
	"errors"

	"github.com/vnykmshr/fanout/pkg/common/validation"
	"github.com/vnykmshr/fanout/pkg/scheduling/workerpool"
)

// Combine completes with fn(a, b) once both futures succeed. The first
// failure completes it immediately without waiting for the other side.
func Combine[A, B, C any](ctx context.Context, a *Future[A], b *Future[B], fn func(A, B) C) *Future[C] {
	out := newFuture[C]()

	go func() {
		var zero C
		var av A
		var bv B
		aDone, bDone := a.Done(), b.Done()

		for aDone != nil || bDone != nil {
			select {
			case <-aDone:
				v, err := a.result()
				if err != nil {
					out.complete(zero, err)
					return
				}
				av, aDone = v, nil
			case <-bDone:
				v, err := b.result()
				if err != nil {
					out.complete(zero, err)
					return
				}
				bv, bDone = v, nil
			case <-ctx.Done():
				out.complete(zero, ctx.Err())
				return
			}
		}

		run(ctx, out, func(context.Context) (C, error) { return fn(av, bv), nil })
	}()

	return out
}

// Then runs fn with f's value once f succeeds. The stage is submitted to
// pool when one is given and runs on the waiting goroutine otherwise. A
// failure of f skips fn and is passed through.
func Then[T, U any](ctx context.Context, pool workerpool.Pool, f *Future[T], fn func(ctx context.Context, val T) (U, error)) *Future[U] {
	out := newFuture[U]()

	go func() {
		var zero U
		select {
		case <-f.Done():
		case <-ctx.Done():
			out.complete(zero, ctx.Err())
			return
		}

		val, err := f.result()
		if err != nil {
			out.complete(zero, err)
			return
		}

		stage := func(ctx context.Context) (U, error) { return fn(ctx, val) }
		if pool == nil {
			run(ctx, out, stage)
			return
		}
		submit(ctx, pool, out, stage)
	}()

	return out
}

// AllOf waits for every future. Values and errors are positional; a future
// still pending when ctx ends reports ctx.Err().
func AllOf[T any](ctx context.Context, futures ...*Future[T]) ([]T, []error) {
	vals := make([]T, len(futures))
	errs := make([]error, len(futures))

	for i, f := range futures {
		select {
		case <-f.Done():
			vals[i], errs[i] = f.result()
		case <-ctx.Done():
			errs[i] = ctx.Err()
		}
	}
	return vals, errs
}

// AnyOf returns the first successful value. If every future fails the
// errors are joined; if ctx ends first its error is returned.
func AnyOf[T any](ctx context.Context, futures ...*Future[T]) (T, error) {
	var zero T
	if err := validation.ValidatePositive("compose", "futures", len(futures)); err != nil {
		return zero, err
	}

	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, len(futures))
	stop := make(chan struct{})
	defer close(stop)

	for _, f := range futures {
		go func(f *Future[T]) {
			select {
			case <-f.Done():
				v, err := f.result()
				ch <- outcome{v, err}
			case <-stop:
			}
		}(f)
	}

	var errs []error
	for range futures {
		select {
		case o := <-ch:
			if o.err == nil {
				return o.val, nil
			}
			errs = append(errs, o.err)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, errors.Join(errs...)
}
