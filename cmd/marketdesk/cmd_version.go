package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if outputFormat == "json" || outputFormat == "yaml" {
			return render(cmd.OutOrStdout(), version.Map(), nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
