package quote

import (
	"context"
	"strings"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// RateProvider returns the rate converting one currency into another.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Discounter applies a discount code to a price.
type Discounter interface {
	Apply(ctx context.Context, price float64, code Code) (float64, error)
}

// DefaultRates are units of each currency per US dollar.
var DefaultRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"CNY": 7.24,
	"JPY": 151.6,
}

// ExchangeService is a simulated remote exchange-rate service.
type ExchangeService struct {
	Delay time.Duration
	rates map[string]float64
}

// NewExchangeService creates a service answering after delay. A nil rates
// map uses DefaultRates.
func NewExchangeService(delay time.Duration, rates map[string]float64) *ExchangeService {
	if rates == nil {
		rates = DefaultRates
	}
	normalized := make(map[string]float64, len(rates))
	for k, v := range rates {
		normalized[strings.ToUpper(k)] = v
	}
	return &ExchangeService{Delay: delay, rates: normalized}
}

// Rate implements RateProvider.
func (s *ExchangeService) Rate(ctx context.Context, from, to string) (float64, error) {
	fromRate, err := s.lookup("from", from)
	if err != nil {
		return 0, err
	}
	toRate, err := s.lookup("to", to)
	if err != nil {
		return 0, err
	}
	if err := fctx.Sleep(ctx, s.Delay); err != nil {
		return 0, err
	}
	return toRate / fromRate, nil
}

func (s *ExchangeService) lookup(field, currency string) (float64, error) {
	rate, ok := s.rates[strings.ToUpper(currency)]
	if !ok || rate <= 0 {
		return 0, errors.NewValidationError("quote", field, currency, "unknown currency")
	}
	return rate, nil
}

// DiscountService is a simulated remote discount service.
type DiscountService struct {
	Delay time.Duration
}

// NewDiscountService creates a service answering after delay.
func NewDiscountService(delay time.Duration) *DiscountService {
	return &DiscountService{Delay: delay}
}

// Apply implements Discounter.
func (s *DiscountService) Apply(ctx context.Context, price float64, code Code) (float64, error) {
	if _, ok := codeNames[code]; !ok {
		return 0, errors.NewValidationError("quote", "code", int(code), "unknown discount code")
	}
	if err := fctx.Sleep(ctx, s.Delay); err != nil {
		return 0, err
	}
	return Apply(price, code), nil
}
