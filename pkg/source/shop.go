package source

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
)

// DefaultDelay is how long a Shop takes to answer unless configured otherwise.
const DefaultDelay = time.Second

// DefaultShopNames lists the demo shops in registry order.
var DefaultShopNames = []string{"rongtao", "liyi", "family", "can", "we"}

// Pricer computes a price for key from a uniform random draw in [0,1).
type Pricer func(draw float64, key string) float64

// KeyPricer is the default Pricer: draw * first rune + second rune, with the
// second rune counting as zero for one-rune keys.
func KeyPricer(draw float64, key string) float64 {
	runes := []rune(key)
	if len(runes) == 0 {
		return 0
	}
	var second rune
	if len(runes) > 1 {
		second = runes[1]
	}
	return draw*float64(runes[0]) + float64(second)
}

// Shop simulates a remote shop with a fixed latency.
type Shop struct {
	name   string
	delay  time.Duration
	jitter time.Duration
	pricer Pricer

	mu  sync.Mutex
	rng *rand.Rand
}

// ShopOption configures a Shop.
type ShopOption func(*Shop)

// WithDelay sets the simulated latency. Negative values count as zero.
func WithDelay(d time.Duration) ShopOption {
	return func(s *Shop) {
		if d < 0 {
			d = 0
		}
		s.delay = d
	}
}

// WithJitter adds a uniform extra delay in [0, d) to every query.
func WithJitter(d time.Duration) ShopOption {
	return func(s *Shop) {
		if d < 0 {
			d = 0
		}
		s.jitter = d
	}
}

// WithSeed makes the shop's draws reproducible.
func WithSeed(seed uint64) ShopOption {
	return func(s *Shop) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithPricer replaces KeyPricer.
func WithPricer(p Pricer) ShopOption {
	return func(s *Shop) {
		if p != nil {
			s.pricer = p
		}
	}
}

// NewShop creates a shop named name.
func NewShop(name string, opts ...ShopOption) *Shop {
	s := &Shop{
		name:   name,
		delay:  DefaultDelay,
		pricer: KeyPricer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Name implements Source.
func (s *Shop) Name() string { return s.name }

// Delay returns the configured base latency.
func (s *Shop) Delay() time.Duration { return s.delay }

// Query waits for the shop's latency and prices key. The wait is cut short
// when ctx is done.
func (s *Shop) Query(ctx context.Context, key string) (float64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	s.mu.Lock()
	wait := s.delay
	if s.jitter > 0 {
		wait += time.Duration(s.rng.Int64N(int64(s.jitter)))
	}
	draw := s.rng.Float64()
	s.mu.Unlock()

	if err := fctx.Sleep(ctx, wait); err != nil {
		return 0, err
	}
	return s.pricer(draw, key), nil
}

// DefaultShops returns the demo shops, each built with opts.
func DefaultShops(opts ...ShopOption) []Source {
	shops := make([]Source, len(DefaultShopNames))
	for i, name := range DefaultShopNames {
		shops[i] = NewShop(name, opts...)
	}
	return shops
}
