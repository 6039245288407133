// Package resource provides the generic client-side cache for one admin
// resource: a paginated list view, a selected item, a fetch status, and
// confirm-then-apply projection of mutation results.
//
// Fetches are fenced by a per-store sequence number. A response is applied
// only if it is newer than the last applied one, so a slow response can never
// overwrite a fresher one that already settled. Mutations never remove items
// from the current page even when the new state would fall outside the active
// filters; the page reconciles on the next explicit fetch.
package resource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport is the remote API as seen by a store.
type Transport[T any] interface {
	// List returns one page of items matching q.
	List(ctx context.Context, q Query) (Page[T], error)

	// Get returns a single item by identifier.
	Get(ctx context.Context, id string) (T, error)

	// Mutate applies the named operation and returns the updated item.
	// The operation name is opaque to the store.
	Mutate(ctx context.Context, id, operation string, payload any) (T, error)
}

// Creator is implemented by transports whose resource accepts new items.
type Creator[T any] interface {
	Create(ctx context.Context, payload any) (T, error)
}

// OperationCreate labels creations in metrics and errors.
const OperationCreate = "create"

// Option configures a Store.
type Option func(*options)

type options struct {
	logger          *zap.Logger
	metrics         *Metrics
	now             func() time.Time
	defaultPageSize int
	newestFirst     bool
}

// WithLogger sets the store logger. The store names it after the resource.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records fetch and mutation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides the time source used for FetchedAt and durations.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDefaultPageSize sets the page size used when FetchList gets one below 1.
func WithDefaultPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultPageSize = min(n, MaxPageSize)
		}
	}
}

// WithNewestFirst makes Insert and Create put new items at the head of the
// page.
func WithNewestFirst() Option {
	return func(o *options) { o.newestFirst = true }
}

// Store caches one resource type. All methods are safe for concurrent use.
type Store[T any] struct {
	name            string
	idOf            func(T) string
	transport       Transport[T]
	logger          *zap.Logger
	metrics         *Metrics
	now             func() time.Time
	defaultPageSize int
	newestFirst     bool

	mu        sync.RWMutex
	list      List[T]
	machine   *statusMachine
	failure   error
	selected  *T
	fetchedAt time.Time
	issued    uint64 // last sequence number handed out
	applied   uint64 // sequence number of the last applied response
	version   uint64

	fan fanout[Snapshot[T]]

	copier copier[T]
}

// New creates an idle store for the resource called name. idOf extracts the
// stable identifier used to merge mutation results.
func New[T any](name string, idOf func(T) string, transport Transport[T], opts ...Option) *Store[T] {
	o := options{
		logger:          zap.NewNop(),
		now:             time.Now,
		defaultPageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		name:            name,
		idOf:            idOf,
		transport:       transport,
		logger:          o.logger.Named(name),
		metrics:         o.metrics,
		now:             o.now,
		defaultPageSize: o.defaultPageSize,
		newestFirst:     o.newestFirst,
		list:            List[T]{Items: []T{}, Page: 1, PageSize: o.defaultPageSize, Filters: Filters{}},
		machine:         newStatusMachine(),
	}
	s.copier = newCopier[T](s.logger)
	return s
}

// CopyErr reports why items of this store cannot be deep copied, or nil.
func (s *Store[T]) CopyErr() error { return s.copier.err }

// Name returns the resource name the store was created with.
func (s *Store[T]) Name() string { return s.name }

// FetchList requests one page and, if the response is still the freshest,
// replaces the list atomically. A failure marks the store Failed and keeps
// the previous items. A response overtaken by a newer settled fetch is
// dropped and ErrSuperseded is returned.
func (s *Store[T]) FetchList(ctx context.Context, filters Filters, page, pageSize int) (List[T], error) {
	q := s.normalizeQuery(filters, page, pageSize)

	s.mu.Lock()
	s.issued++
	seq := s.issued
	var snap *Snapshot[T]
	if s.machine.current() != StatusLoading {
		s.transitionLocked(eventFetch)
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	s.notify(snap)

	s.logger.Debug("fetching list",
		zap.Uint64("seq", seq),
		zap.Int("page", q.Page),
		zap.Int("page_size", q.PageSize),
		zap.Any("filters", q.Filters),
	)

	start := s.now()
	res, err := s.transport.List(ctx, q)
	if err == nil {
		err = checkPage(res, q)
	}
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		s.metrics.observeFetch(s.name, resultSuperseded, elapsed)
		s.logger.Debug("discarding superseded response", zap.Uint64("seq", seq))
		return List[T]{}, ErrSuperseded
	}
	s.applied = seq

	if err != nil {
		ferr := &FetchError{Resource: s.name, Op: "list", Err: err}
		s.failure = ferr
		s.transitionLocked(eventFail)
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		s.metrics.observeFetch(s.name, resultFailed, elapsed)
		s.logger.Warn("list fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		return List[T]{}, ferr
	}

	s.list = List[T]{
		Items:      s.cloneItems(res.Items),
		Page:       pageOr(res.Page, q.Page),
		PageSize:   pageOr(res.PageSize, q.PageSize),
		TotalCount: max(res.Total, 0),
		Filters:    q.Filters,
	}
	s.failure = nil
	s.fetchedAt = s.now()
	s.transitionLocked(eventSucceed)
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	s.metrics.observeFetch(s.name, resultOK, elapsed)

	return snap.List, nil
}

// FetchOne retrieves a single item without touching the list. A failure is
// recorded as StatusFailed with the current items retained.
func (s *Store[T]) FetchOne(ctx context.Context, id string) (T, error) {
	start := s.now()
	item, err := s.transport.Get(ctx, id)
	elapsed := s.now().Sub(start)
	if err != nil {
		var zero T
		ferr := &FetchError{Resource: s.name, Op: "get", ID: id, Err: err}

		s.mu.Lock()
		s.failure = ferr
		s.transitionLocked(eventFail)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

		s.metrics.observeFetch(s.name, resultFailed, elapsed)
		s.logger.Warn("detail fetch failed", zap.String("id", id), zap.Error(err))
		return zero, ferr
	}
	s.metrics.observeFetch(s.name, resultOK, elapsed)
	return item, nil
}

// Open fetches an item and selects it.
func (s *Store[T]) Open(ctx context.Context, id string) (T, error) {
	item, err := s.FetchOne(ctx, id)
	if err != nil {
		return item, err
	}
	s.Select(&item)
	return item, nil
}

// Select sets the selected item, or clears it when item is nil.
func (s *Store[T]) Select(item *T) {
	s.mu.Lock()
	if item == nil {
		s.selected = nil
	} else {
		v := s.clone(*item)
		s.selected = &v
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Selected returns a copy of the selected item.
func (s *Store[T]) Selected() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		var zero T
		return zero, false
	}
	return s.clone(*s.selected), true
}

// Mutate performs a mutating call and, on success, merges the returned item
// into the list and the selection. On failure nothing changes and the error
// is returned as *MutationError.
func (s *Store[T]) Mutate(ctx context.Context, id, operation string, payload any) (T, error) {
	result, err := s.transport.Mutate(ctx, id, operation, payload)
	if err != nil {
		var zero T
		s.metrics.observeMutation(s.name, operation, resultFailed)
		s.logger.Warn("mutation failed",
			zap.String("id", id),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return zero, &MutationError{Resource: s.name, ID: id, Operation: operation, Err: err}
	}

	s.metrics.observeMutation(s.name, operation, resultOK)
	s.Apply(result)
	return result, nil
}

// Create adds a new item through the transport and inserts the result into
// the current page. The transport must implement Creator.
func (s *Store[T]) Create(ctx context.Context, payload any) (T, error) {
	var zero T
	c, ok := s.transport.(Creator[T])
	if !ok {
		return zero, &MutationError{Resource: s.name, Operation: OperationCreate, Err: ErrNotCreatable}
	}
	item, err := c.Create(ctx, payload)
	if err != nil {
		s.metrics.observeMutation(s.name, OperationCreate, resultFailed)
		s.logger.Warn("create failed", zap.Error(err))
		return zero, &MutationError{Resource: s.name, Operation: OperationCreate, Err: err}
	}
	s.metrics.observeMutation(s.name, OperationCreate, resultOK)
	s.Insert(item)
	return item, nil
}

// Apply merges item by replacement into every place the store holds an item
// with the same identifier. Page, total and membership are unchanged.
// It reports whether anything was replaced.
func (s *Store[T]) Apply(item T) bool {
	s.mu.Lock()
	if !s.replaceLocked(item) {
		s.mu.Unlock()
		return false
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// Insert merges item like Apply when the store already holds it. Otherwise
// item joins the current page, at the head for a newest-first store and at
// the tail otherwise, and TotalCount grows by one. The page may exceed its
// size until the next fetch. It reports whether item was new.
func (s *Store[T]) Insert(item T) bool {
	s.mu.Lock()
	added := !s.replaceLocked(item)
	if added {
		items := make([]T, 0, len(s.list.Items)+1)
		if s.newestFirst {
			items = append(items, s.clone(item))
			items = append(items, s.list.Items...)
		} else {
			items = append(items, s.list.Items...)
			items = append(items, s.clone(item))
		}
		s.list.Items = items
		s.list.TotalCount++
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return added
}

func (s *Store[T]) replaceLocked(item T) bool {
	id := s.idOf(item)
	changed := false
	for i := range s.list.Items {
		if s.idOf(s.list.Items[i]) == id {
			items := make([]T, len(s.list.Items))
			copy(items, s.list.Items)
			items[i] = s.clone(item)
			s.list.Items = items
			changed = true
			break
		}
	}
	if s.selected != nil && s.idOf(*s.selected) == id {
		v := s.clone(item)
		s.selected = &v
		changed = true
	}
	return changed
}

// Snapshot returns a deep copy of the store state.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.snapshotLocked()
}

// Status returns the current fetch status.
func (s *Store[T]) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.current()
}

// Subscribe registers fn to receive a snapshot after every visible change.
// Snapshots are delivered in version order; a snapshot older than one
// already delivered is skipped. fn may call any store method, including the
// returned unsubscribe func. A delivery already in progress may still reach
// fn once after it unsubscribes.
func (s *Store[T]) Subscribe(fn func(Snapshot[T])) func() {
	return s.fan.subscribe(fn)
}

// Reset returns the store to Idle with an empty list and no selection.
// Responses to fetches issued before Reset are discarded.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.applied = s.issued
	s.list = List[T]{Items: []T{}, Page: 1, PageSize: s.defaultPageSize, Filters: Filters{}}
	s.selected = nil
	s.failure = nil
	s.fetchedAt = time.Time{}
	s.transitionLocked(eventReset)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	s.logger.Debug("store reset")
}

func (s *Store[T]) transitionLocked(event string) {
	if err := s.machine.fire(event); err != nil {
		s.logger.Error("invalid status transition", zap.String("event", event), zap.Error(err))
	}
	s.version++
}

func (s *Store[T]) snapshotLocked() *Snapshot[T] {
	snap := &Snapshot[T]{
		List: List[T]{
			Items:      s.cloneItems(s.list.Items),
			Page:       s.list.Page,
			PageSize:   s.list.PageSize,
			TotalCount: s.list.TotalCount,
			Filters:    s.list.Filters.Clone(),
		},
		Status:    s.machine.current(),
		FetchedAt: s.fetchedAt,
		Version:   s.version,
	}
	if snap.Status == StatusFailed {
		snap.Err = s.failure
	}
	if s.selected != nil {
		v := s.clone(*s.selected)
		snap.Selected = &v
	}
	return snap
}

// notify hands snap to the subscribers. Callers must not hold s.mu.
func (s *Store[T]) notify(snap *Snapshot[T]) {
	if snap != nil {
		s.fan.publish(snap.Version, *snap)
	}
}

func (s *Store[T]) normalizeQuery(filters Filters, page, pageSize int) Query {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Query{Filters: filters.Clone(), Page: page, PageSize: pageSize}
}

func (s *Store[T]) clone(v T) T { return s.copier.clone(v) }

func (s *Store[T]) cloneItems(items []T) []T {
	out := make([]T, len(items))
	for i := range items {
		out[i] = s.clone(items[i])
	}
	return out
}

func checkPage[T any](res Page[T], q Query) error {
	size := pageOr(res.PageSize, q.PageSize)
	if len(res.Items) > size {
		return ErrPageOverflow
	}
	return nil
}

func pageOr(got, fallback int) int {
	if got > 0 {
		return got
	}
	return fallback
}
