package sandbox

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/apiclient"
	"github.com/HerbHall/marketdesk/internal/server"
	"github.com/HerbHall/marketdesk/pkg/models"
)

const topN = 5

// Ledger entry types and the status of a settled entry.
const (
	ledgerIncome    = "income"
	ledgerExpense   = "expense"
	ledgerCompleted = "completed"
)

// dateRange is a closed range of calendar days.
type dateRange struct {
	start, end time.Time
}

func (d dateRange) contains(t time.Time) bool {
	return !t.Before(d.start) && t.Before(d.end.AddDate(0, 0, 1))
}

// parseRange reads startDate and endDate, falling back to the default window
// ending today.
func parseRange(r *http.Request, now time.Time) (dateRange, error) {
	q := r.URL.Query()
	def := admin.DateRange(time.Time{}, time.Time{}, now)
	var out dateRange
	for _, f := range []struct {
		key string
		dst *time.Time
	}{
		{admin.ParamStartDate, &out.start},
		{admin.ParamEndDate, &out.end},
	} {
		v := q.Get(f.key)
		if v == "" {
			v = def[f.key]
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return dateRange{}, fmt.Errorf("%s %q: %w", f.key, v, ErrBadFilter)
		}
		*f.dst = t
	}
	if out.end.Before(out.start) {
		return dateRange{}, fmt.Errorf("endDate before startDate: %w", ErrBadFilter)
	}
	return out, nil
}

// reportFunc computes one report from the stored documents.
type reportFunc func(d *dataset, rng dateRange, now time.Time) any

var reportFuncs = map[string]reportFunc{
	admin.ReportOverview:          overviewReport,
	admin.ReportTopPerformers:     topPerformersReport,
	admin.ReportAnalytics:         statsReport,
	admin.ReportUserAnalytics:     userReport,
	admin.ReportRevenueAnalytics:  revenueReport,
	admin.ReportServiceAnalytics:  serviceReport,
	admin.ReportDeliveryAnalytics: deliveryReport,
	admin.ReportFinanceSummary:    financeReport,
}

func (s *Sandbox) handleReport(def admin.ReportDefinition) http.HandlerFunc {
	build := reportFuncs[def.Name]
	return func(w http.ResponseWriter, r *http.Request) {
		if build == nil {
			server.NotFound(w, "unknown report "+def.Name, r.URL.Path)
			return
		}
		now := s.now()
		var rng dateRange
		if def.Ranged {
			var err error
			if rng, err = parseRange(r, now); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		d, err := loadDataset(r.Context(), s.repo)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body, err := apiclient.Envelope{Item: def.Item}.WrapItem(build(d, rng, now))
		if err != nil {
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.WriteJSON(w, http.StatusOK, body)
	}
}

// dataset is the typed view of every document a report reads.
type dataset struct {
	users        []models.User
	transactions []models.Transaction
	services     []models.Service
	requests     []models.ServiceRequest
	deliveries   []models.Delivery
	disputes     []models.Dispute
	receivables  []models.Receivable
	payables     []models.Payable
	ledger       []models.LedgerEntry
}

func loadDataset(ctx context.Context, repo *Repository) (*dataset, error) {
	d := &dataset{}
	for _, kind := range accountKinds {
		var users []models.User
		if err := loadKind(ctx, repo, kind, &users); err != nil {
			return nil, err
		}
		d.users = append(d.users, users...)
	}
	for _, l := range []struct {
		kind string
		dst  any
	}{
		{admin.Transactions, &d.transactions},
		{admin.Services, &d.services},
		{admin.ServiceRequests, &d.requests},
		{admin.Deliveries, &d.deliveries},
		{admin.Disputes, &d.disputes},
		{admin.Receivables, &d.receivables},
		{admin.Payables, &d.payables},
		{admin.FinanceTransactions, &d.ledger},
	} {
		if err := loadKind(ctx, repo, l.kind, l.dst); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func loadKind(ctx context.Context, repo *Repository, kind string, dst any) error {
	docs, err := repo.All(ctx, kind)
	if err != nil {
		return err
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func (d *dataset) countRole(role models.UserRole) int {
	n := 0
	for _, u := range d.users {
		if u.Role == role {
			n++
		}
	}
	return n
}

func activeOrder(t models.Transaction) bool {
	switch t.Status {
	case models.TransactionPending, models.TransactionConfirmed, models.TransactionShipped:
		return true
	}
	return false
}

func activeDelivery(dl models.Delivery) bool {
	return dl.Status != models.DeliveryDelivered && dl.Status != models.DeliveryCancelled
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// revenue is the paid volume of transactions and bookings matching keep.
func (d *dataset) revenue(keep func(time.Time) bool) float64 {
	var sum float64
	for _, t := range d.transactions {
		if t.Status != models.TransactionCancelled && keep(t.CreatedAt) {
			sum += t.Amount
		}
	}
	for _, r := range d.requests {
		if r.PaymentStatus == models.PaymentPaid && keep(r.CreatedAt) {
			sum += r.Amount
		}
	}
	return sum
}

func overviewReport(d *dataset, _ dateRange, now time.Time) any {
	out := models.DashboardOverview{
		TotalUsers:         len(d.users),
		MonthlyRevenue:     d.revenue(func(t time.Time) bool { return sameMonth(t, now) }),
		TotalClients:       d.countRole(models.RoleClient),
		TotalProfessionals: d.countRole(models.RoleProfessional),
		TotalRiders:        d.countRole(models.RoleDelivery),
	}
	for _, t := range d.transactions {
		if activeOrder(t) {
			out.ActiveOrders++
		}
	}
	for _, dl := range d.deliveries {
		if activeDelivery(dl) {
			out.ActiveDeliveries++
		}
	}
	return out
}

// topPerformersReport ranks professionals and riders by profile rating,
// then by completed jobs.
func topPerformersReport(d *dataset, _ dateRange, _ time.Time) any {
	out := []models.TopPerformer{}
	for _, u := range d.users {
		if u.Role != models.RoleProfessional && u.Role != models.RoleDelivery {
			continue
		}
		rating, _ := strconv.ParseFloat(u.Profile.Rate, 64)
		out = append(out, models.TopPerformer{
			ID:        u.ID,
			Role:      u.Role,
			Email:     u.Email,
			Phone:     u.Phone,
			Status:    u.Status,
			AvgRating: rating,
			Profile:   u.Profile,
		})
	}
	slices.SortStableFunc(out, func(a, b models.TopPerformer) int {
		if c := cmp.Compare(b.AvgRating, a.AvgRating); c != 0 {
			return c
		}
		return cmp.Compare(b.Profile.TotalJobsCompleted, a.Profile.TotalJobsCompleted)
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func statsReport(d *dataset, _ dateRange, now time.Time) any {
	out := models.DashboardStats{
		TotalUsers:         len(d.users),
		TotalClients:       d.countRole(models.RoleClient),
		TotalProfessionals: d.countRole(models.RoleProfessional),
		TotalRiders:        d.countRole(models.RoleDelivery),
		TotalOrders:        len(d.transactions),
		TotalServices:      len(d.services),
		TotalDeliveries:    len(d.deliveries),
		TotalRevenue:       d.revenue(func(time.Time) bool { return true }),
		MonthlyRevenue:     d.revenue(func(t time.Time) bool { return sameMonth(t, now) }),
	}
	for _, u := range d.users {
		if u.Status == models.UserStatusActive {
			out.ActiveUsers++
		}
	}
	for _, dp := range d.disputes {
		if dp.Status == models.DisputeOpen || dp.Status == models.DisputeInvestigating {
			out.PendingDisputes++
		}
	}
	for _, dl := range d.deliveries {
		if activeDelivery(dl) {
			out.ActiveDeliveries++
		}
	}
	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

func userReport(d *dataset, rng dateRange, now time.Time) any {
	out := models.UserAnalytics{MostActiveUsers: []models.RankedUser{}}
	today := now.UTC().Truncate(24 * time.Hour)
	before, active := 0, 0
	for _, u := range d.users {
		created := u.CreatedAt.UTC()
		if !created.Before(today) {
			out.NewUsersToday++
		}
		if !created.Before(today.AddDate(0, 0, -6)) {
			out.NewUsersThisWeek++
		}
		if rng.contains(created) {
			out.NewUsersThisMonth++
		}
		if created.Before(rng.start) {
			before++
		}
		if u.Status == models.UserStatusActive {
			active++
		}
		p := u.Profile
		out.MostActiveUsers = append(out.MostActiveUsers, models.RankedUser{
			ID:            u.ID,
			Name:          u.DisplayName(),
			Type:          string(u.Role),
			ActivityScore: float64(p.TotalJobs + p.TotalJobsCompleted + p.TotalReview),
		})
	}
	out.UserGrowthRate = percent(out.NewUsersThisMonth, before)
	out.UserRetentionRate = percent(active, len(d.users))
	slices.SortStableFunc(out.MostActiveUsers, func(a, b models.RankedUser) int {
		return cmp.Compare(b.ActivityScore, a.ActivityScore)
	})
	if len(out.MostActiveUsers) > topN {
		out.MostActiveUsers = out.MostActiveUsers[:topN]
	}
	return out
}

func revenueReport(d *dataset, rng dateRange, _ time.Time) any {
	daily := map[string]float64{}
	monthly := map[string]float64{}
	add := func(t time.Time, amount float64) {
		daily[t.UTC().Format(time.DateOnly)] += amount
		monthly[t.UTC().Format("2006-01")] += amount
	}
	for _, t := range d.transactions {
		if t.Status != models.TransactionCancelled && rng.contains(t.CreatedAt) {
			add(t.CreatedAt, t.Amount)
		}
	}

	category := map[string]string{}
	for _, sv := range d.services {
		category[sv.ID] = sv.Category
	}
	byCategory := map[string]float64{}
	earners := map[string]*models.Earner{}
	var serviceTotal float64
	for _, r := range d.requests {
		if r.PaymentStatus != models.PaymentPaid || !rng.contains(r.CreatedAt) {
			continue
		}
		add(r.CreatedAt, r.Amount)
		byCategory[category[r.ServiceID]] += r.Amount
		serviceTotal += r.Amount
		e, ok := earners[r.ProfessionalID]
		if !ok {
			e = &models.Earner{ID: r.ProfessionalID, Name: r.ProfessionalName}
			earners[r.ProfessionalID] = e
		}
		e.Earnings += r.Amount
		e.Services++
	}

	out := models.RevenueAnalytics{
		DailyRevenue:            []models.DatedAmount{},
		MonthlyRevenue:          []models.MonthlyAmount{},
		RevenueByCategory:       []models.CategoryShare{},
		TopEarningProfessionals: []models.Earner{},
	}
	for _, day := range sortedKeys(daily) {
		out.DailyRevenue = append(out.DailyRevenue, models.DatedAmount{Date: day, Amount: daily[day]})
	}
	for _, month := range sortedKeys(monthly) {
		out.MonthlyRevenue = append(out.MonthlyRevenue, models.MonthlyAmount{Month: month, Amount: monthly[month]})
	}
	for _, c := range sortedKeys(byCategory) {
		share := 0.0
		if serviceTotal > 0 {
			share = byCategory[c] * 100 / serviceTotal
		}
		out.RevenueByCategory = append(out.RevenueByCategory, models.CategoryShare{
			Category: c, Amount: byCategory[c], Percentage: share,
		})
	}
	for _, e := range earners {
		out.TopEarningProfessionals = append(out.TopEarningProfessionals, *e)
	}
	slices.SortFunc(out.TopEarningProfessionals, func(a, b models.Earner) int {
		if c := cmp.Compare(b.Earnings, a.Earnings); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out.TopEarningProfessionals) > topN {
		out.TopEarningProfessionals = out.TopEarningProfessionals[:topN]
	}
	return out
}

func serviceReport(d *dataset, rng dateRange, _ time.Time) any {
	out := models.ServiceAnalytics{PopularCategories: []models.CategoryShare{}}
	category := map[string]string{}
	var ratings float64
	rated := 0
	for _, sv := range d.services {
		category[sv.ID] = sv.Category
		if sv.Rating > 0 {
			ratings += sv.Rating
			rated++
		}
	}
	if rated > 0 {
		out.AverageRating = ratings / float64(rated)
	}

	counts := map[string]int{}
	for _, r := range d.requests {
		if !rng.contains(r.CreatedAt) {
			continue
		}
		out.TotalServices++
		switch r.Status {
		case models.RequestCompleted:
			out.CompletedServices++
		case models.RequestCancelled:
			out.CancelledServices++
		}
		counts[category[r.ServiceID]]++
	}
	out.ServiceCompletionRate = percent(out.CompletedServices, out.TotalServices)
	for _, c := range sortedKeys(counts) {
		out.PopularCategories = append(out.PopularCategories, models.CategoryShare{
			Category: c, Count: counts[c], Percentage: percent(counts[c], out.TotalServices),
		})
	}
	slices.SortStableFunc(out.PopularCategories, func(a, b models.CategoryShare) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

func deliveryReport(d *dataset, rng dateRange, _ time.Time) any {
	out := models.DeliveryAnalytics{TopPerformingRiders: []models.RankedRider{}}
	ratings := map[string]float64{}
	for _, u := range d.users {
		if u.Role == models.RoleDelivery {
			ratings[u.ID], _ = strconv.ParseFloat(u.Profile.Rate, 64)
		}
	}

	riders := map[string]*models.RankedRider{}
	var minutes float64
	onTime := 0
	for _, dl := range d.deliveries {
		if !rng.contains(dl.CreatedAt) {
			continue
		}
		out.TotalDeliveries++
		if dl.Status != models.DeliveryDelivered || dl.ActualDelivery == nil {
			continue
		}
		out.CompletedDeliveries++
		minutes += dl.ActualDelivery.Sub(dl.CreatedAt).Minutes()
		if !dl.ActualDelivery.After(dl.EstimatedDelivery) {
			onTime++
		}
		if dl.RiderID == "" {
			continue
		}
		rr, ok := riders[dl.RiderID]
		if !ok {
			rr = &models.RankedRider{ID: dl.RiderID, Name: dl.RiderName, Rating: ratings[dl.RiderID]}
			riders[dl.RiderID] = rr
		}
		rr.Deliveries++
	}
	if out.CompletedDeliveries > 0 {
		out.AverageDeliveryTime = minutes / float64(out.CompletedDeliveries)
	}
	out.OnTimeDeliveryRate = percent(onTime, out.CompletedDeliveries)
	for _, rr := range riders {
		out.TopPerformingRiders = append(out.TopPerformingRiders, *rr)
	}
	slices.SortFunc(out.TopPerformingRiders, func(a, b models.RankedRider) int {
		if c := cmp.Compare(b.Deliveries, a.Deliveries); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out.TopPerformingRiders) > topN {
		out.TopPerformingRiders = out.TopPerformingRiders[:topN]
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// outstanding reports whether an invoice is still owed and whether it is past
// its due day.
func outstanding(status models.InvoiceStatus, due, today time.Time) (open, late bool) {
	switch status {
	case models.InvoicePaid, models.InvoiceCancelled:
		return false, false
	case models.InvoiceOverdue:
		return true, true
	}
	return true, due.Before(today)
}

func financeReport(d *dataset, _ dateRange, now time.Time) any {
	var out models.FinancialSummary
	today := now.UTC().Truncate(24 * time.Hour)
	for _, r := range d.receivables {
		open, late := outstanding(r.Status, r.DueDate, today)
		if open {
			out.TotalReceivables += r.Amount
		}
		if late {
			out.OverdueReceivables += r.Amount
		}
	}
	for _, p := range d.payables {
		open, late := outstanding(p.Status, p.DueDate, today)
		if open {
			out.TotalPayables += p.Amount
		}
		if late {
			out.OverduePayables += p.Amount
		}
	}
	for _, e := range d.ledger {
		if e.Status != ledgerCompleted {
			continue
		}
		thisMonth := sameMonth(e.CreatedAt, now)
		switch e.Type {
		case ledgerIncome:
			out.TotalRevenue += e.Amount
			if thisMonth {
				out.MonthlyRevenue += e.Amount
			}
		case ledgerExpense:
			out.TotalExpenses += e.Amount
			if thisMonth {
				out.MonthlyExpenses += e.Amount
			}
		}
	}
	out.NetCashFlow = out.TotalReceivables - out.TotalPayables
	out.NetProfit = out.TotalRevenue - out.TotalExpenses
	if out.TotalRevenue != 0 {
		out.ProfitMargin = out.NetProfit * 100 / out.TotalRevenue
	}
	return out
}
