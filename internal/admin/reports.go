package admin

import (
	"time"

	"github.com/HerbHall/marketdesk/internal/resource"
)

// Report names.
const (
	ReportOverview          = "overview"
	ReportTopPerformers     = "top-performers"
	ReportAnalytics         = "analytics"
	ReportUserAnalytics     = "user-analytics"
	ReportRevenueAnalytics  = "revenue-analytics"
	ReportServiceAnalytics  = "service-analytics"
	ReportDeliveryAnalytics = "delivery-analytics"
	ReportFinanceSummary    = "finance-summary"
)

// Date range parameters of the analytics reports.
const (
	ParamStartDate = "startDate"
	ParamEndDate   = "endDate"

	// DefaultRange is the window used when no dates are given.
	DefaultRange = 30 * 24 * time.Hour
)

// ReportDefinition describes one single-document endpoint. Item locates the
// report inside the response body. Ranged reports take startDate and endDate.
type ReportDefinition struct {
	Name   string
	Title  string
	Path   string
	Item   string
	Ranged bool
}

var reports = []ReportDefinition{
	{Name: ReportOverview, Title: "Dashboard overview", Path: "/api/admin/dashboard/overview", Item: "$.data"},
	{Name: ReportTopPerformers, Title: "Top performers", Path: "/api/admin/dashboard/top-performers", Item: "$.data"},
	{Name: ReportAnalytics, Title: "Platform analytics", Path: "/api/analytics/dashboard", Item: "$"},
	{Name: ReportUserAnalytics, Title: "User analytics", Path: "/api/analytics/users", Item: "$", Ranged: true},
	{Name: ReportRevenueAnalytics, Title: "Revenue analytics", Path: "/api/analytics/revenue", Item: "$", Ranged: true},
	{Name: ReportServiceAnalytics, Title: "Service analytics", Path: "/api/analytics/services", Item: "$", Ranged: true},
	{Name: ReportDeliveryAnalytics, Title: "Delivery analytics", Path: "/api/analytics/delivery", Item: "$", Ranged: true},
	{Name: ReportFinanceSummary, Title: "Financial summary", Path: "/api/finance/summary", Item: "$"},
}

// Reports returns every report definition in display order.
func Reports() []ReportDefinition {
	out := make([]ReportDefinition, len(reports))
	copy(out, reports)
	return out
}

// LookupReport returns the report definition for name.
func LookupReport(name string) (ReportDefinition, bool) {
	for _, r := range reports {
		if r.Name == name {
			return r, true
		}
	}
	return ReportDefinition{}, false
}

// DateRange returns the parameters for the window [start, end] as calendar
// dates. A zero start means DefaultRange before end; a zero end means now.
func DateRange(start, end, now time.Time) resource.Filters {
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.Add(-DefaultRange)
	}
	return resource.Filters{
		ParamStartDate: start.UTC().Format(time.DateOnly),
		ParamEndDate:   end.UTC().Format(time.DateOnly),
	}
}
