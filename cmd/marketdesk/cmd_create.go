package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var createData string

var createCmd = &cobra.Command{
	Use:   "create <resource>",
	Short: "Create an item, such as a conversation or an outgoing call",
	Example: `  marketdesk create conversations --data '{"userId":"usr-c-001","userType":"client","subject":"Refund"}'
  marketdesk create call-logs --data '{"userId":"usr-r-001","userType":"rider"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(createData)) {
			return fmt.Errorf("--data is not valid JSON")
		}

		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Member(args[0])
		if err != nil {
			return err
		}
		if !m.Definition().Creatable() {
			return fmt.Errorf("%s cannot be created", args[0])
		}
		item, err := m.Create(cmd.Context(), json.RawMessage(createData))
		if err != nil {
			return err
		}
		return renderItem(cmd.OutOrStdout(), item)
	},
}

func init() {
	createCmd.Flags().StringVar(&createData, "data", "{}", "JSON request body")
	rootCmd.AddCommand(createCmd)
}
