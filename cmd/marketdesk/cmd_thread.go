package main

import (
	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/pkg/models"
)

var messagesPage, messagesLimit int

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "List the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Thread(args[0])
		if err != nil {
			return err
		}
		view, err := m.FetchList(cmd.Context(), nil, messagesPage, messagesLimit)
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), view)
	},
}

var sendCmd = &cobra.Command{
	Use:     "send <conversation-id> <message>",
	Short:   "Send a support message to a conversation",
	Example: `  marketdesk send cnv-001 "Your refund has been approved."`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Thread(args[0])
		if err != nil {
			return err
		}
		msg, err := m.Create(cmd.Context(), models.NewMessage{Message: args[1]})
		if err != nil {
			return err
		}
		return renderItem(cmd.OutOrStdout(), msg)
	},
}

func init() {
	messagesCmd.Flags().IntVar(&messagesPage, "page", 1, "page number")
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 0, "page size (default api.page_size)")
	rootCmd.AddCommand(messagesCmd, sendCmd)
}
