package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/internal/admin"
)

type resourceInfo struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	List       string   `json:"list"`
	Filters    []string `json:"filters"`
	Operations []string `json:"operations"`
	Creatable  bool     `json:"creatable"`
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resource types and their operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var infos []resourceInfo
		for _, def := range admin.Catalog() {
			infos = append(infos, resourceInfo{
				Name:       def.Name,
				Title:      def.Title,
				List:       def.Endpoints.List,
				Filters:    def.Filters,
				Operations: def.Operations(),
				Creatable:  def.Creatable(),
			})
		}
		return render(cmd.OutOrStdout(), infos, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "NAME\tTITLE\tFILTERS\tOPERATIONS")
			for _, r := range infos {
				ops := r.Operations
				if r.Creatable {
					ops = append([]string{"create"}, ops...)
				}
				opList := strings.Join(ops, ",")
				if opList == "" {
					opList = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Title, strings.Join(r.Filters, ","), opList)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}
