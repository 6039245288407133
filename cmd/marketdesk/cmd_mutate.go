package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var mutateData string

var mutateCmd = &cobra.Command{
	Use:   "mutate <resource> <id> <operation>",
	Short: "Run an operation on one item",
	Example: `  marketdesk mutate products prd-001 approve
  marketdesk mutate disputes dsp-002 resolve --data '{"resolution":"refund","refundAmount":5000}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, id, op := args[0], args[1], args[2]

		var payload any
		if mutateData != "" {
			if !json.Valid([]byte(mutateData)) {
				return fmt.Errorf("--data is not valid JSON")
			}
			payload = json.RawMessage(mutateData)
		}

		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Member(name)
		if err != nil {
			return err
		}
		if def := m.Definition(); !def.HasOperation(op) {
			ops := strings.Join(def.Operations(), ", ")
			if ops == "" {
				ops = "none"
			}
			return fmt.Errorf("%s has no operation %q (available: %s)", name, op, ops)
		}

		item, err := m.Mutate(cmd.Context(), id, op, payload)
		if err != nil {
			return err
		}
		return renderItem(cmd.OutOrStdout(), item)
	},
}

func init() {
	mutateCmd.Flags().StringVar(&mutateData, "data", "", "JSON request body")
	rootCmd.AddCommand(mutateCmd)
}
