package cli

import (
	"github.com/spf13/cobra"

	"github.com/vnykmshr/fanout/internal/app"
	"github.com/vnykmshr/fanout/pkg/aggregator"
	fctx "github.com/vnykmshr/fanout/pkg/common/context"
)

func newPricesCommand(opts *globalOptions) *cobra.Command {
	var sequential bool

	cmd := &cobra.Command{
		Use:   "prices <product>",
		Short: "Print the price of a product at every source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var report aggregator.Report
			if sequential {
				ctx, cancel := fctx.WithOptionalTimeout(cmd.Context(), a.Aggregator.Timeout())
				report = aggregator.Sequential(ctx, a.Registry, args[0])
				cancel()
			} else {
				report, err = a.Aggregator.Aggregate(cmd.Context(), args[0])
			}

			if perr := app.PrintReport(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			a.Logger.Info("prices collected", "product", args[0], "elapsed", report.Elapsed, "sequential", sequential)
			return settle(a, err)
		},
	}

	cmd.Flags().BoolVar(&sequential, "sequential", false, "query the sources one after another instead of concurrently")
	return cmd
}
