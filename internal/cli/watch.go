package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/fanout/pkg/aggregator"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch <product>",
		Short: "Re-run the price aggregation on a schedule until interrupted",
		Long: `Re-run the price aggregation on a schedule until interrupted.

The schedule is a cron expression (with an optional seconds field) or a
descriptor such as @every 10s. When metrics are enabled in the config file,
/metrics and /healthz are served on metrics.addr while watching.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if schedule == "" {
				schedule = a.Config.Watch.Schedule
			}

			return a.Watch(cmd.Context(), schedule, cmd.OutOrStdout(), func(ctx context.Context) (aggregator.Report, error) {
				return a.Aggregator.Aggregate(ctx, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression or @every descriptor (default from config)")
	return cmd
}
