package source

import (
	"context"
	"time"

	fctx "github.com/vnykmshr/fanout/pkg/common/context"
	"github.com/vnykmshr/fanout/pkg/common/validation"
)

// Source is a named price source. Implementations must be safe for
// concurrent use and should return promptly once ctx is done.
type Source interface {
	// Name identifies the source within a registry.
	Name() string

	// Query blocks until the source answers key or fails.
	Query(ctx context.Context, key string) (float64, error)
}

// ValidateKey rejects empty query keys.
func ValidateKey(key string) error {
	return validation.ValidateNotEmpty("source", "query", key)
}

// QueryFunc answers a query for Func sources.
type QueryFunc func(ctx context.Context, key string) (float64, error)

type funcSource struct {
	name string
	fn   QueryFunc
}

// Func adapts fn into a Source called name.
func Func(name string, fn QueryFunc) Source {
	return &funcSource{name: name, fn: fn}
}

func (s *funcSource) Name() string { return s.name }

func (s *funcSource) Query(ctx context.Context, key string) (float64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	return s.fn(ctx, key)
}

// Fixed returns a source that answers every key with value after delay.
func Fixed(name string, value float64, delay time.Duration) Source {
	return Func(name, func(ctx context.Context, _ string) (float64, error) {
		if err := fctx.Sleep(ctx, delay); err != nil {
			return 0, err
		}
		return value, nil
	})
}
