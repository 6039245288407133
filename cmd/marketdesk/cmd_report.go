package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/internal/admin"
)

var reportFrom, reportTo string

var reportCmd = &cobra.Command{
	Use:   "report [name]",
	Short: "Show a dashboard or analytics report, or list the reports",
	Example: `  marketdesk report
  marketdesk report overview
  marketdesk report revenue-analytics --from 2026-03-01 --to 2026-03-31`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return renderReportList(cmd)
		}
		from, err := parseDay("--from", reportFrom)
		if err != nil {
			return err
		}
		to, err := parseDay("--to", reportTo)
		if err != nil {
			return err
		}

		hub, _, err := newHub()
		if err != nil {
			return err
		}
		r, err := hub.Report(args[0])
		if err != nil {
			return err
		}
		view, err := r.Fetch(cmd.Context(), hub.ReportParams(r.Definition(), from, to))
		if err != nil {
			return err
		}
		if f := strings.ToLower(outputFormat); f == "json" || f == "yaml" {
			return render(cmd.OutOrStdout(), view, nil)
		}
		return renderReport(cmd.OutOrStdout(), view.Data)
	},
}

func parseDay(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD: %w", flag, err)
	}
	return t, nil
}

func renderReportList(cmd *cobra.Command) error {
	defs := admin.Reports()
	return render(cmd.OutOrStdout(), defs, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tTITLE\tRANGED")
		for _, d := range defs {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", d.Name, d.Title, d.Ranged)
		}
	})
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first day of the range (YYYY-MM-DD), default 30 days before --to")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last day of the range (YYYY-MM-DD), default today")
	rootCmd.AddCommand(reportCmd)
}
