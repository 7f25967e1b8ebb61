package cli

import (
	"github.com/spf13/cobra"

	"github.com/vnykmshr/fanout/internal/app"
)

func newConvertCommand(opts *globalOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert <product>",
		Short: "Print every source's price converted into another currency",
		Long: `Print every source's price converted into another currency.

The price and the exchange rate are fetched concurrently for each source and
combined once both have arrived.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := a.Aggregator.Converted(cmd.Context(), args[0], a.Exchange, from, to)
			if perr := app.PrintReport(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return settle(a, err)
		},
	}

	cmd.Flags().StringVar(&from, "from", "USD", "currency the sources quote in")
	cmd.Flags().StringVar(&to, "to", "EUR", "currency to convert into")
	return cmd
}
