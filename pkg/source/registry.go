package source

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/common/validation"
)

// Registry is an immutable, ordered set of uniquely named sources.
type Registry struct {
	sources []Source
	index   map[string]int
}

// NewRegistry validates sources and fixes their order.
func NewRegistry(sources ...Source) (*Registry, error) {
	if len(sources) == 0 {
		return nil, errors.NewValidationError("source", "sources", 0, "registry needs at least one source").
			WithHint("register the shops to query")
	}

	for i, src := range sources {
		if err := validation.ValidateNotNil("source", fmt.Sprintf("sources[%d]", i), src); err != nil {
			return nil, err
		}
		if err := validation.ValidateNotEmpty("source", fmt.Sprintf("sources[%d].name", i), src.Name()); err != nil {
			return nil, err
		}
	}

	names := lo.Map(sources, func(src Source, _ int) string { return src.Name() })
	if err := validation.ValidateUnique("source", "name", names); err != nil {
		return nil, err
	}

	r := &Registry{
		sources: append([]Source(nil), sources...),
		index:   make(map[string]int, len(sources)),
	}
	for i, name := range names {
		r.index[name] = i
	}
	return r, nil
}

// MustRegistry is NewRegistry for statically known sources. It panics on error.
func MustRegistry(sources ...Source) *Registry {
	r, err := NewRegistry(sources...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// Sources returns the sources in registry order. The slice is a copy.
func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

// At returns the i-th source.
func (r *Registry) At(i int) Source {
	return r.sources[i]
}

// Names returns the source names in registry order.
func (r *Registry) Names() []string {
	return lo.Map(r.sources, func(src Source, _ int) string { return src.Name() })
}

// Get looks a source up by name.
func (r *Registry) Get(name string) (Source, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.sources[i], true
}
