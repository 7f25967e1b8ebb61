package aggregator

import (
	"time"

	"github.com/samber/lo"

	"github.com/vnykmshr/fanout/pkg/quote"
)

// Status tags the result held by a slot.
type Status int

const (
	// StatusOK means the source answered.
	StatusOK Status = iota
	// StatusFailed means the source returned an error.
	StatusFailed
	// StatusTimedOut means the source had not answered when time ran out.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Outcome is the result of one source for one query.
type Outcome struct {
	Source string
	Query  string
	Value  float64
	Status Status
	Err    error

	// Duration is how long the source took, or how long the aggregation
	// waited for it when it timed out.
	Duration time.Duration
}

// String renders the outcome as one display line.
func (o Outcome) String() string {
	switch o.Status {
	case StatusOK:
		return quote.Format(o.Source, o.Value)
	case StatusTimedOut:
		return o.Source + " timed out"
	default:
		if o.Err == nil {
			return o.Source + " failed"
		}
		return o.Source + " failed: " + o.Err.Error()
	}
}

// OK reports whether the source answered.
func (o Outcome) OK() bool {
	return o.Status == StatusOK
}

// Report holds the outcomes of one aggregation in registry order.
type Report struct {
	Query    string
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Strings renders every outcome, in order.
func (r Report) Strings() []string {
	return lo.Map(r.Outcomes, func(o Outcome, _ int) string { return o.String() })
}

// OK returns the successful outcomes, in order.
func (r Report) OK() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool { return o.OK() })
}

// Failed returns the failed and timed-out outcomes, in order.
func (r Report) Failed() []Outcome {
	return lo.Reject(r.Outcomes, func(o Outcome, _ int) bool { return o.OK() })
}

// Pending returns the names of sources that timed out.
func (r Report) Pending() []string {
	return lo.FilterMap(r.Outcomes, func(o Outcome, _ int) (string, bool) {
		return o.Source, o.Status == StatusTimedOut
	})
}
