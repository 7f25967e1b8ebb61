package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/fanout/pkg/aggregator"
	"github.com/vnykmshr/fanout/pkg/scheduling/scheduler"
	"github.com/vnykmshr/fanout/pkg/scheduling/workerpool"
)

// RunFunc performs one aggregation.
type RunFunc func(ctx context.Context) (aggregator.Report, error)

// Watch runs run on schedule until ctx is done, printing every report to
// out. A run still in progress when the next one is due is skipped. When
// metrics are enabled the ops server lives exactly as long as the watch.
func (a *App) Watch(ctx context.Context, schedule string, out io.Writer, run RunFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stays nil, and never selected, without an ops server.
	var opsErrCh chan error
	if a.Config.Metrics.Enabled {
		listener, err := net.Listen("tcp", a.Config.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		opsErrCh = make(chan error, 1)
		go func() {
			opsErrCh <- a.ServeOps(ctx, listener)
		}()
	}

	sched := scheduler.NewWithConfig(scheduler.Config{
		SkipIfRunning: true,
		Logger:        a.Logger,
	})

	var round atomic.Int64
	task := workerpool.TaskFunc(func(taskCtx context.Context) error {
		n := round.Add(1)
		report, err := run(taskCtx)

		fmt.Fprintf(out, "[%s] round %d (%s)\n", time.Now().Format(time.TimeOnly), n, report.Elapsed.Round(time.Millisecond))
		if perr := PrintReport(out, report); perr != nil {
			return perr
		}
		return err
	})

	err := sched.ScheduleCron("watch", schedule, task)
	if err == nil {
		err = sched.Start()
	}
	if err == nil {
		a.Logger.Info("watching", "schedule", schedule)

		select {
		case <-ctx.Done():
		case err = <-opsErrCh:
			opsErrCh = nil
		}
	}

	<-sched.Stop()
	cancel()
	if opsErrCh != nil {
		if opsErr := <-opsErrCh; err == nil {
			err = opsErr
		}
	}
	return err
}
