package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/live"
)

var watchCmd = &cobra.Command{
	Use:   "watch [resource...]",
	Short: "Follow live resource updates",
	Long: `Fetch the first page of each named resource (all resources when none are
given) and print every live update merged into them until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub, tokens, err := newHub()
		if err != nil {
			return err
		}
		members, err := watched(hub, args)
		if err != nil {
			return err
		}
		for _, m := range members {
			if _, err := m.FetchList(ctx, nil, 1, 0); err != nil {
				return fmt.Errorf("fetch %s: %w", m.Definition().Name, err)
			}
		}

		wsURL, err := liveURL()
		if err != nil {
			return err
		}
		only := make(map[string]bool, len(members))
		for _, m := range members {
			only[m.Definition().Name] = true
		}
		out := cmd.OutOrStdout()
		feed := live.NewFeed(wsURL, hub,
			live.WithTokenSource(tokens),
			live.WithLogger(logger.Named("live")),
			live.OnMessage(func(msg live.Message, applied bool) {
				if !only[msg.Resource] {
					return
				}
				state := "applied"
				if !applied {
					state = "unchanged"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", msg.Resource, state, truncate(string(msg.Item), 120))
			}),
		)

		logger.Info("watching", zap.String("url", wsURL), zap.Int("resources", len(members)))
		return feed.Run(ctx)
	},
}

// watched resolves the named members, or every member when names is empty.
func watched(hub *admin.Hub, names []string) ([]admin.Member, error) {
	if len(names) == 0 {
		return hub.Members(), nil
	}
	out := make([]admin.Member, 0, len(names))
	for _, name := range names {
		m, err := hub.Member(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
