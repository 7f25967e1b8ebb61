package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSourcesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources in registry order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDELAY\tJITTER\tMAX CONCURRENT")
			for _, src := range cfg.Sources {
				limit := "-"
				if src.MaxConcurrent > 0 {
					limit = strconv.Itoa(src.MaxConcurrent)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src.Name, src.Delay.ToDuration(), src.Jitter.ToDuration(), limit)
			}
			return w.Flush()
		},
	}
}
