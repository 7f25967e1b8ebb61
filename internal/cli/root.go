// Package cli implements the fanout command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/fanout/internal/app"
	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/config"
	"github.com/vnykmshr/fanout/pkg/logging"
)

type globalOptions struct {
	configPath string
	timeout    time.Duration
	logLevel   string
}

// NewRootCommand builds the fanout command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "fanout",
		Short: "Query every price source at once and collect the answers in order",
		Long: `fanout asks a registry of simulated shops for the price of a product.
All shops are queried concurrently on a bounded worker pool and the answers
are printed in registry order, one line per shop. A shop that fails or does
not answer before the timeout is reported on its own line without affecting
the others.

Examples:
  # Prices from the five default shops
  fanout prices myPhone

  # Prices converted from USD to EUR
  fanout convert myPhone --from USD --to EUR

  # Prices after a discount code
  fanout discount myPhone --code GOLD

  # Refresh every 10 seconds, serving /metrics while running
  fanout watch myPhone --schedule "@every 10s" --config fanout.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.DurationVar(&opts.timeout, "timeout", 0, "aggregation timeout (overrides the config file)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newPricesCommand(opts),
		newConvertCommand(opts),
		newDiscountCommand(opts),
		newWatchCommand(opts),
		newSourcesCommand(opts),
	)
	return root
}

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Aggregator.Timeout = config.Duration(o.timeout)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// newApp loads configuration and wires the application. The returned
// cleanup closes the app and the log output.
func (o *globalOptions) newApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	out, closeOut, err := logging.Output(cfg.Logging.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("log output: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, out)
	if err != nil {
		_ = closeOut()
		return nil, nil, err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = closeOut()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
		_ = closeOut()
	}
	return a, cleanup, nil
}

// settle decides the exit status after a report was printed. Timed-out
// sources are already visible in the report, so a timeout is only logged.
func settle(a *app.App, err error) error {
	if errors.Is(err, gferrors.ErrTimeout) {
		a.Logger.Warn("some sources did not answer in time", "error", err)
		return nil
	}
	return err
}
