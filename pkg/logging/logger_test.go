package logging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/fanout/internal/testutil"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

func decode(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(line), &m))
	return m
}

func TestNewJSON(t *testing.T) {
	w := testutil.NewMockWriter()
	logger, err := New("info", "json", w)
	testutil.AssertNoError(t, err)

	logger.Debug("hidden")
	logger.Info("aggregation finished", "query", "myPhone", "sources", 5, "elapsed", 1500*time.Millisecond)
	logger.Warn("source failed", "source", "BuyItAll", "error", errors.New("boom"))

	lines := w.Lines()
	testutil.AssertEqual(t, len(lines), 2)

	info := decode(t, lines[0])
	testutil.AssertEqual(t, info["level"], interface{}("info"))
	testutil.AssertEqual(t, info["message"], interface{}("aggregation finished"))
	testutil.AssertEqual(t, info["query"], interface{}("myPhone"))
	testutil.AssertEqual(t, info["sources"], interface{}(float64(5)))
	testutil.AssertEqual(t, info["elapsed"], interface{}(float64(1500)))

	warn := decode(t, lines[1])
	testutil.AssertEqual(t, warn["error"], interface{}("boom"))
}

func TestNewText(t *testing.T) {
	w := testutil.NewMockWriter()
	logger, err := New("debug", "text", w)
	testutil.AssertNoError(t, err)

	logger.Debug("querying", "source", "ShopEasy")
	testutil.AssertContains(t, w.String(), "querying")
	testutil.AssertContains(t, w.String(), "ShopEasy")
}

func TestNewInvalid(t *testing.T) {
	_, err := New("loud", "json", testutil.NewMockWriter())
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)

	_, err = New("info", "xml", testutil.NewMockWriter())
	testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, tt.want)
	}
}

func TestWith(t *testing.T) {
	w := testutil.NewMockWriter()
	logger, err := New("info", "json", w)
	testutil.AssertNoError(t, err)

	logger.With("aggregator", "shops").Info("started")
	entry := decode(t, w.Lines()[0])
	testutil.AssertEqual(t, entry["aggregator"], interface{}("shops"))
}

func TestNilLogger(t *testing.T) {
	var logger *Logger

	logger.Info("nothing happens", "key", "value")
	logger.With("a", 1).Error("still nothing")
	testutil.AssertEqual(t, logger.Enabled(zerolog.ErrorLevel), false)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("discarded")
	testutil.AssertEqual(t, logger.Enabled(zerolog.ErrorLevel), false)
}

func TestOutput(t *testing.T) {
	path := t.TempDir() + "/fanout.log"
	w, closeFn, err := Output(path)
	testutil.AssertNoError(t, err)

	logger, err := New("info", "json", w)
	testutil.AssertNoError(t, err)
	logger.Info("to file")
	testutil.AssertNoError(t, closeFn())

	_, closeFn, err = Output("stderr")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, closeFn())
}
