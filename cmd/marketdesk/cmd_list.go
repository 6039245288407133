package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/internal/resource"
)

var (
	listStatus  string
	listSearch  string
	listFilters []string
	listPage    int
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "Fetch one page of a resource",
	Example: `  marketdesk list disputes --status open
  marketdesk list products --filter category=tools --page 2 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters(listFilters)
		if err != nil {
			return err
		}
		if listStatus != "" {
			filters["status"] = listStatus
		}
		if listSearch != "" {
			filters["search"] = listSearch
		}

		hub, _, err := newHub()
		if err != nil {
			return err
		}
		m, err := hub.Member(args[0])
		if err != nil {
			return err
		}
		view, err := m.FetchList(cmd.Context(), filters, listPage, listLimit)
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), view)
	},
}

// parseFilters turns key=value pairs into filters.
func parseFilters(pairs []string) (resource.Filters, error) {
	filters := resource.Filters{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q: want key=value", p)
		}
		filters[k] = v
	}
	return filters, nil
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listSearch, "search", "", "free-text search")
	listCmd.Flags().StringArrayVar(&listFilters, "filter", nil, "extra filter as key=value (repeatable)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "page size (default api.page_size)")
	rootCmd.AddCommand(listCmd)
}
