package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
)

func modulesSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "Lists the analysis modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tag := range dispatch.Tags {
				fmt.Fprintf(w, "%s\t%s\n", tag, tag.Label())
			}
			return w.Flush()
		},
	}
}
