package main

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <resource> <id>",
	Short: "Fetch one item by identifier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Member(args[0])
		if err != nil {
			return err
		}
		item, err := m.FetchOne(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		return renderItem(cmd.OutOrStdout(), item)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
