package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/marketdesk/internal/apiclient"
	"github.com/HerbHall/marketdesk/internal/resource"
	"github.com/HerbHall/marketdesk/pkg/models"
)

// ErrUnknownResource is returned for a resource name the catalog lacks.
var ErrUnknownResource = errors.New("unknown resource")

// refreshConcurrency bounds parallel fetches in RefreshAll.
const refreshConcurrency = 4

// Option configures a Hub.
type Option func(*hubOptions)

type hubOptions struct {
	logger   *zap.Logger
	metrics  *resource.Metrics
	pageSize int
	now      func() time.Time
}

// WithLogger sets the logger every store is named under.
func WithLogger(l *zap.Logger) Option {
	return func(o *hubOptions) { o.logger = l }
}

// WithMetrics records store activity on m.
func WithMetrics(m *resource.Metrics) Option {
	return func(o *hubOptions) { o.metrics = m }
}

// WithPageSize sets the default page size of every store.
func WithPageSize(n int) Option {
	return func(o *hubOptions) { o.pageSize = n }
}

// WithClock overrides the store time source.
func WithClock(now func() time.Time) Option {
	return func(o *hubOptions) { o.now = now }
}

// Hub owns one store per resource type. It is built once at start-up and
// passed by reference to whatever needs the stores.
type Hub struct {
	Clients             *resource.Store[models.User]
	Professionals       *resource.Store[models.User]
	Riders              *resource.Store[models.User]
	Corporates          *resource.Store[models.User]
	Products            *resource.Store[models.Product]
	Transactions        *resource.Store[models.Transaction]
	Services            *resource.Store[models.Service]
	ServiceRequests     *resource.Store[models.ServiceRequest]
	Deliveries          *resource.Store[models.Delivery]
	Disputes            *resource.Store[models.Dispute]
	Receivables         *resource.Store[models.Receivable]
	Payables            *resource.Store[models.Payable]
	FinanceTransactions *resource.Store[models.LedgerEntry]
	Conversations       *resource.Store[models.Conversation]
	CallLogs            *resource.Store[models.CallLog]
	Activities          *resource.Store[models.Activity]

	Overview          *resource.Value[models.DashboardOverview]
	TopPerformers     *resource.Value[[]models.TopPerformer]
	Analytics         *resource.Value[models.DashboardStats]
	UserAnalytics     *resource.Value[models.UserAnalytics]
	RevenueAnalytics  *resource.Value[models.RevenueAnalytics]
	ServiceAnalytics  *resource.Value[models.ServiceAnalytics]
	DeliveryAnalytics *resource.Value[models.DeliveryAnalytics]
	FinanceSummary    *resource.Value[models.FinancialSummary]

	members  map[string]Member
	order    []string
	reports  map[string]ReportMember
	rorder   []string
	logger   *zap.Logger
	now      func() time.Time
	client   *apiclient.Client
	opts     []resource.Option
	threadMu sync.Mutex
	threads  map[string]*thread
}

// thread is the message store of one conversation.
type thread struct {
	store  *resource.Store[models.Message]
	member Member
}

// NewHub builds every store of the catalog over client.
func NewHub(client *apiclient.Client, opts ...Option) (*Hub, error) {
	o := hubOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	storeOpts := []resource.Option{
		resource.WithLogger(o.logger),
		resource.WithMetrics(o.metrics),
	}
	if o.pageSize > 0 {
		storeOpts = append(storeOpts, resource.WithDefaultPageSize(o.pageSize))
	}
	if o.now != nil {
		storeOpts = append(storeOpts, resource.WithClock(o.now))
	}
	reportOpts := []resource.Option{resource.WithLogger(o.logger), resource.WithMetrics(o.metrics)}
	if o.now != nil {
		reportOpts = append(reportOpts, resource.WithClock(o.now))
	}

	if o.now == nil {
		o.now = time.Now
	}
	h := &Hub{
		members: make(map[string]Member),
		reports: make(map[string]ReportMember),
		logger:  o.logger,
		now:     o.now,
		client:  client,
		opts:    storeOpts,
		threads: make(map[string]*thread),
	}
	b := &builder{hub: h, client: client, opts: storeOpts, reportOpts: reportOpts}

	h.Clients = build(b, Clients, userID)
	h.Professionals = build(b, Professionals, userID)
	h.Riders = build(b, Riders, userID)
	h.Corporates = build(b, Corporates, userID)
	h.Products = build(b, Products, func(p models.Product) string { return p.ID })
	h.Transactions = build(b, Transactions, func(t models.Transaction) string { return t.ID })
	h.Services = build(b, Services, func(s models.Service) string { return s.ID })
	h.ServiceRequests = build(b, ServiceRequests, func(r models.ServiceRequest) string { return r.ID })
	h.Deliveries = build(b, Deliveries, func(d models.Delivery) string { return d.ID })
	h.Disputes = build(b, Disputes, func(d models.Dispute) string { return d.ID })
	h.Receivables = build(b, Receivables, func(r models.Receivable) string { return r.ID })
	h.Payables = build(b, Payables, func(p models.Payable) string { return p.ID })
	h.FinanceTransactions = build(b, FinanceTransactions, func(e models.LedgerEntry) string { return e.ID })
	h.Conversations = build(b, Conversations, func(c models.Conversation) string { return c.ID })
	h.CallLogs = build(b, CallLogs, func(c models.CallLog) string { return c.ID })
	h.Activities = build(b, Activities, func(a models.Activity) string { return a.ID })

	h.Overview = buildReport[models.DashboardOverview](b, ReportOverview)
	h.TopPerformers = buildReport[[]models.TopPerformer](b, ReportTopPerformers)
	h.Analytics = buildReport[models.DashboardStats](b, ReportAnalytics)
	h.UserAnalytics = buildReport[models.UserAnalytics](b, ReportUserAnalytics)
	h.RevenueAnalytics = buildReport[models.RevenueAnalytics](b, ReportRevenueAnalytics)
	h.ServiceAnalytics = buildReport[models.ServiceAnalytics](b, ReportServiceAnalytics)
	h.DeliveryAnalytics = buildReport[models.DeliveryAnalytics](b, ReportDeliveryAnalytics)
	h.FinanceSummary = buildReport[models.FinancialSummary](b, ReportFinanceSummary)

	if b.err != nil {
		return nil, b.err
	}
	return h, nil
}

func userID(u models.User) string { return u.ID }

// builder carries the first construction error so NewHub reads as a list.
type builder struct {
	hub        *Hub
	client     *apiclient.Client
	opts       []resource.Option
	reportOpts []resource.Option
	err        error
}

func build[T any](b *builder, name string, idOf func(T) string) *resource.Store[T] {
	if b.err != nil {
		return nil
	}
	def, ok := Lookup(name)
	if !ok {
		b.err = fmt.Errorf("build %s: %w", name, ErrUnknownResource)
		return nil
	}
	store, m, err := newMember(b.client, def, idOf, b.opts)
	if err != nil {
		b.err = err
		return nil
	}
	b.hub.members[name] = m
	b.hub.order = append(b.hub.order, name)
	return store
}

func newMember[T any](c *apiclient.Client, def Definition, idOf func(T) string, opts []resource.Option) (*resource.Store[T], *member[T], error) {
	transport, err := apiclient.NewResource[T](c, def.Name, def.Endpoints)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	if def.NewestFirst {
		opts = append(opts[:len(opts):len(opts)], resource.WithNewestFirst())
	}
	store := resource.New(def.Name, idOf, resource.Transport[T](transport), opts...)
	return store, &member[T]{def: def, store: store, live: def.LiveInsert}, nil
}

func buildReport[T any](b *builder, name string) *resource.Value[T] {
	if b.err != nil {
		return nil
	}
	def, ok := LookupReport(name)
	if !ok {
		b.err = fmt.Errorf("build report %s: %w", name, ErrUnknownResource)
		return nil
	}
	fetcher, err := apiclient.NewReport[T](b.client, def.Name, def.Path, def.Item)
	if err != nil {
		b.err = fmt.Errorf("build report %s: %w", name, err)
		return nil
	}
	value := resource.NewValue(def.Name, resource.Fetcher[T](fetcher), b.reportOpts...)
	b.hub.reports[name] = &report[T]{def: def, value: value}
	b.hub.rorder = append(b.hub.rorder, name)
	return value
}

// Member returns the store registered under name.
func (h *Hub) Member(name string) (Member, error) {
	m, ok := h.members[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownResource)
	}
	return m, nil
}

// Members returns every store in catalog order.
func (h *Hub) Members() []Member {
	out := make([]Member, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.members[name])
	}
	return out
}

// Report returns the report registered under name.
func (h *Hub) Report(name string) (ReportMember, error) {
	r, ok := h.reports[name]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", name, ErrUnknownResource)
	}
	return r, nil
}

// Reports returns every report in display order.
func (h *Hub) Reports() []ReportMember {
	out := make([]ReportMember, 0, len(h.rorder))
	for _, name := range h.rorder {
		out = append(out, h.reports[name])
	}
	return out
}

// ReportParams returns the query for def: the given dates for a ranged
// report, nothing otherwise. Zero dates fall back to DateRange defaults.
func (h *Hub) ReportParams(def ReportDefinition, start, end time.Time) resource.Filters {
	if !def.Ranged {
		return resource.Filters{}
	}
	return DateRange(start, end, h.now())
}

// Messages returns the message store of a conversation, creating it on
// first use. Stores live until ResetAll.
func (h *Hub) Messages(conversationID string) (*resource.Store[models.Message], error) {
	t, err := h.thread(conversationID)
	if err != nil {
		return nil, err
	}
	return t.store, nil
}

// Thread is Messages as a type-erased Member.
func (h *Hub) Thread(conversationID string) (Member, error) {
	t, err := h.thread(conversationID)
	if err != nil {
		return nil, err
	}
	return t.member, nil
}

func (h *Hub) thread(conversationID string) (*thread, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%s: empty conversation id: %w", Messages, ErrUnknownResource)
	}
	h.threadMu.Lock()
	defer h.threadMu.Unlock()
	if t, ok := h.threads[conversationID]; ok {
		return t, nil
	}
	store, m, err := newMember(h.client, MessagesDefinition(conversationID),
		func(msg models.Message) string { return msg.ID }, h.opts)
	if err != nil {
		return nil, err
	}
	t := &thread{store: store, member: m}
	h.threads[conversationID] = t
	return t, nil
}

func (h *Hub) openThreads() []*thread {
	h.threadMu.Lock()
	defer h.threadMu.Unlock()
	out := make([]*thread, 0, len(h.threads))
	for _, t := range h.threads {
		out = append(out, t)
	}
	return out
}

// ApplyRaw merges a JSON-encoded item into the named store. Messages go to
// the thread named by their conversationId, if that thread is open.
func (h *Hub) ApplyRaw(name string, raw []byte) (bool, error) {
	if name == Messages {
		var head struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return false, fmt.Errorf("decode %s item: %w", Messages, err)
		}
		h.threadMu.Lock()
		t, ok := h.threads[head.ConversationID]
		h.threadMu.Unlock()
		if !ok {
			return false, nil
		}
		return t.member.ApplyRaw(raw)
	}
	m, err := h.Member(name)
	if err != nil {
		return false, err
	}
	return m.ApplyRaw(raw)
}

// ResetAll returns every store and report to Idle and drops the message
// threads, e.g. after logout.
func (h *Hub) ResetAll() {
	for _, m := range h.Members() {
		m.Reset()
	}
	for _, r := range h.Reports() {
		r.Reset()
	}
	threads := h.openThreads()
	h.threadMu.Lock()
	clear(h.threads)
	h.threadMu.Unlock()
	for _, t := range threads {
		t.store.Reset()
	}
	h.logger.Debug("all stores reset")
}

// RefreshAll re-fetches the current page of every store and thread that
// has been fetched before, keeping its filters, and every fetched report with
// its parameters. Idle ones are skipped. Everything is attempted; the first
// error is returned.
func (h *Hub) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)

	lists := h.Members()
	for _, t := range h.openThreads() {
		lists = append(lists, t.member)
	}
	for _, m := range lists {
		if m.Status() == resource.StatusIdle {
			continue
		}
		g.Go(func() error {
			snap := m.Snapshot()
			_, err := m.FetchList(ctx, snap.Filters, snap.Page, snap.PageSize)
			return h.refreshed(m.Definition().Name, err)
		})
	}
	for _, r := range h.Reports() {
		if r.Status() == resource.StatusIdle {
			continue
		}
		g.Go(func() error {
			_, err := r.Fetch(ctx, r.Snapshot().Params)
			return h.refreshed(r.Definition().Name, err)
		})
	}
	return g.Wait()
}

func (h *Hub) refreshed(name string, err error) error {
	if err == nil || errors.Is(err, resource.ErrSuperseded) {
		return nil
	}
	h.logger.Warn("refresh failed", zap.String("resource", name), zap.Error(err))
	return err
}
