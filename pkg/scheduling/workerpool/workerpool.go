package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

// resultDeliveryTimeout bounds how long a worker waits for somebody to read
// Results before dropping the result.
const resultDeliveryTimeout = 100 * time.Millisecond

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// The queuing deadline must not leak into task execution.
	return p.submit(ctx, context.Background(), task)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.submit(ctx, ctx, task)
}

func (p *workerPool) submit(queueCtx, taskCtx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	p.mu.RLock()
	if p.isShutdown {
		p.mu.RUnlock()
		return fmt.Errorf("cannot submit task: worker pool has been shut down: %w", gferrors.ErrClosed)
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	// Pre-canceled contexts are rejected deterministically.
	select {
	case <-queueCtx.Done():
		return fmt.Errorf("cannot submit task: %w", queueCtx.Err())
	default:
	}

	twc := taskWithContext{
		task: task,
		ctx:  taskCtx,
	}

	p.totalSubmitted.Add(1)
	select {
	case p.taskQueue <- twc:
		return nil
	case <-p.shutdownCh:
		p.totalSubmitted.Add(-1)
		return fmt.Errorf("cannot submit task: worker pool has been shut down: %w", gferrors.ErrClosed)
	case <-queueCtx.Done():
		p.totalSubmitted.Add(-1)
		return fmt.Errorf("cannot submit task: %w", queueCtx.Err())
	}
}

// Results returns a channel of task results.
func (p *workerPool) Results() <-chan Result {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool. Queued tasks still
// run; calling Shutdown again returns the same channel.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		// Unblocks submitters waiting on a full queue.
		close(p.shutdownCh)

		go func() {
			p.submitters.Wait()
			close(p.taskQueue)
			p.workerWg.Wait()
			close(p.resultQueue)
			p.kill()
			close(p.done)
		}()
	})

	return p.done
}

// ShutdownWithTimeout shuts down the pool and cancels whatever is still
// running or queued once timeout elapses.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()
	out := make(chan struct{})

	go func() {
		defer close(out)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			p.kill()
			<-done
		}
	}()

	return out
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks that finished executing.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker. It drains the queue until Shutdown
// closes it.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id)
	}

	for twc := range w.pool.taskQueue {
		w.executeTask(twc)
	}
}

// sendResult sends a task result to the result queue with appropriate handling.
func (w *worker) sendResult(result Result) {
	if w.pool.config.DiscardResults {
		return
	}

	timer := time.NewTimer(resultDeliveryTimeout)
	defer timer.Stop()

	select {
	case w.pool.resultQueue <- result:
	case <-timer.C:
		// Nobody is reading results.
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(twc taskWithContext) {
	p := w.pool
	start := time.Now()
	var err error

	p.activeWorkers.Add(1)
	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(w.id, twc.task)
	}

	defer func() {
		if r := recover(); r != nil {
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(twc.task, r)
				err = nil
			} else {
				err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}

		result := Result{
			Task:     twc.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
		}

		p.activeWorkers.Add(-1)
		p.totalCompleted.Add(1)
		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(w.id, result)
		}

		w.sendResult(result)
	}()

	killed := fmt.Errorf("worker pool killed: %w", gferrors.ErrClosed)
	ctx, cancel := context.WithCancelCause(twc.ctx)
	defer cancel(nil)
	if p.killCtx.Err() != nil {
		// Still executed, with a finished context, so the task can report.
		cancel(killed)
	}
	stop := context.AfterFunc(p.killCtx, func() { cancel(killed) })
	defer stop()

	// The effective timeout is the minimum of the context deadline and TaskTimeout.
	if p.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancelTimeout()
	}

	err = twc.task.Execute(ctx)
}
