package source

import (
	"errors"
	"testing"

	"github.com/vnykmshr/fanout/internal/testutil"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name      string
		sources   []Source
		wantErr   bool
		wantField string
	}{
		{"valid", []Source{Fixed("A", 1, 0), Fixed("B", 2, 0)}, false, ""},
		{"single", []Source{Fixed("A", 1, 0)}, false, ""},
		{"empty", nil, true, "sources"},
		{"nil source", []Source{Fixed("A", 1, 0), nil}, true, "sources[1]"},
		{"empty name", []Source{Fixed("", 1, 0)}, true, "sources[0].name"},
		{"duplicate name", []Source{Fixed("A", 1, 0), Fixed("B", 2, 0), Fixed("A", 3, 0)}, true, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.sources...)
			if !tt.wantErr {
				testutil.AssertNoError(t, err)
				testutil.AssertEqual(t, r.Len(), len(tt.sources))
				return
			}

			var verr *gferrors.ValidationError
			testutil.AssertEqual(t, errors.As(err, &verr), true)
			testutil.AssertEqual(t, verr.Field, tt.wantField)
			testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
		})
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	r := MustRegistry(Fixed("C", 3, 0), Fixed("A", 1, 0), Fixed("B", 2, 0))

	names := r.Names()
	testutil.AssertEqual(t, len(names), 3)
	testutil.AssertEqual(t, names[0], "C")
	testutil.AssertEqual(t, names[1], "A")
	testutil.AssertEqual(t, names[2], "B")
	testutil.AssertEqual(t, r.At(2).Name(), "B")

	src, ok := r.Get("A")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, src.Name(), "A")

	_, ok = r.Get("missing")
	testutil.AssertEqual(t, ok, false)
}

func TestRegistryIsImmutable(t *testing.T) {
	input := []Source{Fixed("A", 1, 0), Fixed("B", 2, 0)}
	r := MustRegistry(input...)

	input[0] = Fixed("Z", 9, 0)
	got := r.Sources()
	got[1] = nil

	testutil.AssertEqual(t, r.At(0).Name(), "A")
	testutil.AssertEqual(t, r.At(1).Name(), "B")
}

func TestMustRegistryPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	MustRegistry()
}
