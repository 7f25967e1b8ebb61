package aggregator

import (
	"context"
	"errors"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/source"
)

// Sequential queries the sources one after another on the calling
// goroutine. It is the baseline Aggregate is measured against and shares
// its outcome model: once ctx ends, the remaining sources are marked timed
// out (deadline) or failed (cancellation) without being queried.
func Sequential(ctx context.Context, registry *source.Registry, query string) Report {
	start := time.Now()
	report := Report{Query: query, Outcomes: make([]Outcome, registry.Len())}

	for i, src := range registry.Sources() {
		o := Outcome{Source: src.Name(), Query: query}

		switch {
		case fctx.IsTimedOut(ctx):
			o.Status = StatusTimedOut
			o.Err = gferrors.ErrTimeout
		case ctx.Err() != nil:
			o.Status = StatusFailed
			o.Err = gferrors.NewSourceError(o.Source, query, ctx.Err())
		default:
			begin := time.Now()
			value, err := src.Query(ctx, query)
			o.Duration = time.Since(begin)
			switch {
			case err == nil:
				o.Status = StatusOK
				o.Value = value
			case fctx.IsTimedOut(ctx) && errors.Is(err, context.DeadlineExceeded):
				o.Status = StatusTimedOut
				o.Err = gferrors.ErrTimeout
			default:
				o.Status = StatusFailed
				o.Err = gferrors.NewSourceError(o.Source, query, err)
			}
		}

		report.Outcomes[i] = o
	}

	report.Elapsed = time.Since(start)
	return report
}
