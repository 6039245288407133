package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/marketdesk/internal/admin"
)

// summaryFields are tried in order for the SUMMARY column.
var summaryFields = []string{"title", "subject", "invoiceNumber", "trackingNumber", "vendorName", "callerName", "description", "message", "action", "email"}

// render writes v in the selected output format. table is used for the
// table format.
func render(w io.Writer, v any, table func(*tabwriter.Writer)) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// toGeneric converts v to maps and slices through its JSON form so YAML
// output uses the same field names as JSON.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func itemFields(item any) map[string]any {
	g, err := toGeneric(item)
	if err != nil {
		return nil
	}
	m, _ := g.(map[string]any)
	return m
}

func summary(fields map[string]any) string {
	for _, key := range summaryFields {
		if s, ok := fields[key].(string); ok && s != "" {
			return truncate(s, 48)
		}
	}
	if p, ok := fields["profile"].(map[string]any); ok {
		first, _ := p["firstName"].(string)
		last, _ := p["lastName"].(string)
		return strings.TrimSpace(first + " " + last)
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderView(w io.Writer, v admin.View) error {
	return render(w, v, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tSTATUS\tSUMMARY")
		for _, item := range v.Items {
			f := itemFields(item)
			fmt.Fprintf(tw, "%v\t%v\t%s\n", f["id"], f["status"], summary(f))
		}
		pages := 1
		if v.PageSize > 0 && v.TotalCount > 0 {
			pages = (v.TotalCount + v.PageSize - 1) / v.PageSize
		}
		fmt.Fprintf(tw, "\npage %d of %d, %d total\n", v.Page, pages, v.TotalCount)
	})
}

func renderItem(w io.Writer, item any) error {
	return render(w, item, func(tw *tabwriter.Writer) {
		f := itemFields(item)
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, scalar(f[k]))
		}
	})
}

// scalar formats a field value on one line.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case map[string]any, []any:
		data, _ := json.Marshal(x)
		return truncate(string(data), 80)
	default:
		return fmt.Sprint(x)
	}
}

// renderReport prints a report as key/value pairs, or as one row per entry
// when the report is a list.
func renderReport(w io.Writer, data any) error {
	rows, ok := mustGeneric(data).([]any)
	if !ok {
		return renderItem(w, data)
	}
	return render(w, data, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tROLE\tRATING\tSUMMARY")
		for _, row := range rows {
			f, _ := row.(map[string]any)
			fmt.Fprintf(tw, "%v\t%v\t%v\t%s\n", f["id"], f["role"], f["avgRating"], summary(f))
		}
	})
}

func mustGeneric(v any) any {
	g, err := toGeneric(v)
	if err != nil {
		return nil
	}
	return g
}
