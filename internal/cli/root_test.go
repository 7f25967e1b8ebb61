package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
)

const testConfig = `
sources:
  - name: A
    delay: 0s
  - name: B
    delay: 0s
  - name: Slow
    delay: 1h
aggregator:
  timeout: 200ms
quote:
  exchange_delay: 1ms
  discount_delay: 1ms
logging:
  level: error
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fanout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestPricesCommand(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, context.Background(), "prices", "myPhone", "--config", path)
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[0], "A price is "))
	assert.True(t, strings.HasPrefix(got[1], "B price is "))
	assert.Equal(t, "Slow timed out", got[2])
}

func TestPricesSequential(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, context.Background(), "prices", "myPhone", "--config", path, "--sequential", "--timeout", "100ms")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	assert.Equal(t, "Slow timed out", got[2])
}

func TestTimeoutFlagOverridesConfig(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: Slow
    delay: 1h
logging:
  level: error
`)

	start := time.Now()
	out, err := run(t, context.Background(), "prices", "myPhone", "--config", path, "--timeout", "100ms")
	require.NoError(t, err)
	assert.Equal(t, "Slow timed out\n", out)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConvertCommand(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, context.Background(), "convert", "myPhone", "--config", path, "--from", "USD", "--to", "JPY")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "A price is ")
	assert.Equal(t, "Slow timed out", got[2])
}

func TestDiscountCommand(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, context.Background(), "discount", "myPhone", "--config", path, "--code", "diamond")
	require.NoError(t, err)
	assert.Len(t, lines(out), 3)

	_, err = run(t, context.Background(), "discount", "myPhone", "--config", path, "--code", "bronze")
	assert.True(t, gferrors.IsValidationError(err))
}

func TestWatchCommand(t *testing.T) {
	path := writeConfig(t, testConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	out, err := run(t, ctx, "watch", "myPhone", "--config", path, "--schedule", "@every 1s")
	require.NoError(t, err)
	assert.Contains(t, out, "round 1")
	assert.Contains(t, out, "Slow timed out")
}

func TestSourcesCommand(t *testing.T) {
	out, err := run(t, context.Background(), "sources")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 6)
	assert.Contains(t, got[0], "NAME")
	assert.True(t, strings.HasPrefix(got[1], "rongtao"))
	assert.True(t, strings.HasPrefix(got[5], "we "))
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, context.Background(), "prices")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "prices", "myPhone", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := writeConfig(t, "aggregator:\n  max_workers: -3\n")
	_, err = run(t, context.Background(), "prices", "myPhone", "--config", bad)
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	_, err = run(t, context.Background(), "prices", "myPhone", "--log-level", "shout")
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}
