package cli

import (
	"github.com/spf13/cobra"

	"github.com/vnykmshr/fanout/internal/app"
	"github.com/vnykmshr/fanout/pkg/quote"
)

func newDiscountCommand(opts *globalOptions) *cobra.Command {
	var codeName string

	cmd := &cobra.Command{
		Use:   "discount <product>",
		Short: "Print every source's price after a discount code",
		Long: `Print every source's price after a discount code.

Codes: NONE (0%), SILVER (5%), GOLD (10%), PLATINUM (15%), DIAMOND (20%).
The discount service is asked only after a source has answered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := quote.ParseCode(codeName)
			if err != nil {
				return err
			}

			a, cleanup, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := a.Aggregator.Discounted(cmd.Context(), args[0], a.Discounts, code)
			if perr := app.PrintReport(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return settle(a, err)
		},
	}

	cmd.Flags().StringVar(&codeName, "code", quote.None.String(), "discount code")
	return cmd
}
