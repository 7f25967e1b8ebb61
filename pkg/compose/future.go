package compose

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/vnykmshr/fanout/pkg/scheduling/workerpool"
)

// Future is the eventual result of an asynchronous computation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete stores the first result; later calls are ignored.
func (f *Future[T]) complete(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the future has a result.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx is done. Giving up on the
// wait does not cancel the computation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// result must only be called after done is closed.
func (f *Future[T]) result() (T, error) {
	return f.val, f.err
}

// Completed returns a future already holding val.
func Completed[T any](val T) *Future[T] {
	f := newFuture[T]()
	f.complete(val, nil)
	return f
}

// Failed returns a future already holding err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Async runs fn on pool, or on a new goroutine when pool is nil. If the
// pool refuses the task the future fails with the submission error.
func Async[T any](ctx context.Context, pool workerpool.Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	submit(ctx, pool, f, fn)
	return f
}

func submit[T any](ctx context.Context, pool workerpool.Pool, f *Future[T], fn func(ctx context.Context) (T, error)) {
	if pool == nil {
		go run(ctx, f, fn)
		return
	}

	task := workerpool.TaskFunc(func(taskCtx context.Context) error {
		run(taskCtx, f, fn)
		_, err := f.result()
		return err
	})
	if err := pool.SubmitWithContext(ctx, task); err != nil {
		var zero T
		f.complete(zero, err)
	}
}

// run calls fn and completes f, turning a panic into an error.
func run[T any](ctx context.Context, f *Future[T], fn func(ctx context.Context) (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			f.complete(zero, fmt.Errorf("future panicked: %v\n%s", r, debug.Stack()))
		}
	}()

	val, err := fn(ctx)
	f.complete(val, err)
}
