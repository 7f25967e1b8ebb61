package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vnykmshr/fanout/internal/testutil"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/quote"
	"github.com/vnykmshr/fanout/pkg/source"
)

func TestConverted(t *testing.T) {
	registry := source.MustRegistry(
		source.Fixed("A", 100, 0),
		source.Fixed("B", 50, 0),
	)
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Converted(context.Background(), "myPhone", quote.NewExchangeService(0, nil), "USD", "EUR")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, report.Outcomes[0].Value, 92.0)
	testutil.AssertEqual(t, report.Outcomes[1].Value, 46.0)
	assertLines(t, report.Strings(), []string{"A price is 92.0", "B price is 46.0"})
}

func TestConvertedRunsLookupsConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond
	registry := source.MustRegistry(source.Fixed("A", 10, delay))
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Converted(context.Background(), "myPhone", quote.NewExchangeService(delay, nil), "USD", "USD")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, report.Outcomes[0].Value, 10.0)
	// Price and rate overlap, so the pair costs one delay.
	testutil.AssertBetween(t, report.Elapsed, delay, 2*delay-20*time.Millisecond)
}

func TestConvertedUnknownCurrency(t *testing.T) {
	registry := source.MustRegistry(source.Fixed("A", 10, 0), source.Fixed("B", 20, 0))
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Converted(context.Background(), "myPhone", quote.NewExchangeService(0, nil), "USD", "XYZ")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(report.Failed()), 2)
	for _, o := range report.Outcomes {
		testutil.AssertEqual(t, gferrors.IsValidationError(o.Err), true)
	}
}

func TestConvertedSourceFailure(t *testing.T) {
	boom := errors.New("offline")
	registry := source.MustRegistry(failing("A", boom), source.Fixed("B", 20, 0))
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Converted(context.Background(), "myPhone", quote.NewExchangeService(0, nil), "USD", "GBP")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, errors.Is(report.Outcomes[0].Err, boom), true)
	testutil.AssertEqual(t, report.Outcomes[1].Value, 15.8)
}

func TestDiscounted(t *testing.T) {
	registry := source.MustRegistry(
		source.Fixed("A", 100, 0),
		source.Fixed("B", 200, 0),
	)
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Discounted(context.Background(), "myPhone", quote.NewDiscountService(0), quote.Gold)
	testutil.AssertNoError(t, err)
	assertLines(t, report.Strings(), []string{"A price is 90.0", "B price is 180.0"})
}

func TestDiscountedChainsAfterPrice(t *testing.T) {
	const delay = 40 * time.Millisecond
	registry := source.MustRegistry(source.Fixed("A", 100, delay))
	agg := newAggregator(t, Config{Registry: registry})

	report, err := agg.Discounted(context.Background(), "myPhone", quote.NewDiscountService(delay), quote.None)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, report.Outcomes[0].Value, 100.0)
	testutil.AssertEqual(t, report.Elapsed >= 2*delay, true)
}

func TestDiscountedTimeout(t *testing.T) {
	registry := source.MustRegistry(source.Fixed("A", 100, 0))
	agg := newAggregator(t, Config{Registry: registry, Timeout: 30 * time.Millisecond})

	report, err := agg.Discounted(context.Background(), "myPhone", quote.NewDiscountService(time.Minute), quote.Diamond)
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrTimeout), true)
	testutil.AssertEqual(t, report.Outcomes[0].Status, StatusTimedOut)
}
