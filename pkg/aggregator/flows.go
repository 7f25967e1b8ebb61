package aggregator

import (
	"context"

	"github.com/vnykmshr/fanout/pkg/compose"
	"github.com/vnykmshr/fanout/pkg/quote"
	"github.com/vnykmshr/fanout/pkg/source"
)

// Converted prices query at every source in currency from and converts
// each price into currency to. Per source, the price and the exchange rate
// are fetched concurrently and combined once both arrive; either failing
// fails the slot.
func (a *Aggregator) Converted(ctx context.Context, query string, rates quote.RateProvider, from, to string) (Report, error) {
	return a.run(ctx, query, func(ctx context.Context, src source.Source) (float64, error) {
		price := compose.Async(ctx, nil, func(ctx context.Context) (float64, error) {
			return src.Query(ctx, query)
		})
		rate := compose.Async(ctx, nil, func(ctx context.Context) (float64, error) {
			return rates.Rate(ctx, from, to)
		})
		return compose.Combine(ctx, price, rate, quote.Convert).Await(ctx)
	})
}

// Discounted prices query at every source and then asks discounts for the
// price after applying code. The discount lookup starts only once the
// source has answered.
func (a *Aggregator) Discounted(ctx context.Context, query string, discounts quote.Discounter, code quote.Code) (Report, error) {
	return a.run(ctx, query, func(ctx context.Context, src source.Source) (float64, error) {
		price := compose.Async(ctx, nil, func(ctx context.Context) (float64, error) {
			return src.Query(ctx, query)
		})
		return compose.Then(ctx, nil, price, func(ctx context.Context, p float64) (float64, error) {
			return discounts.Apply(ctx, p, code)
		}).Await(ctx)
	})
}
