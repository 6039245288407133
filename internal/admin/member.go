package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/HerbHall/marketdesk/internal/resource"
)

// View is a type-erased store snapshot for generic consumers such as the
// CLI and the live feed.
type View struct {
	Resource   string           `json:"resource"`
	Items      []any            `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalCount int              `json:"totalCount"`
	Filters    resource.Filters `json:"filters"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Selected   any              `json:"selected,omitempty"`
	FetchedAt  time.Time        `json:"fetchedAt"`
	Version    uint64           `json:"version"`
}

// Member is one store in the hub, addressed by resource name.
type Member interface {
	Definition() Definition
	Status() resource.Status
	FetchList(ctx context.Context, filters resource.Filters, page, pageSize int) (View, error)
	FetchOne(ctx context.Context, id string) (any, error)
	Open(ctx context.Context, id string) (any, error)
	Deselect()
	Mutate(ctx context.Context, id, operation string, payload any) (any, error)
	Create(ctx context.Context, payload any) (any, error)
	// ApplyRaw decodes a JSON item and merges it like a mutation result.
	// LiveInsert resources also take items they do not hold yet.
	ApplyRaw(raw []byte) (bool, error)
	Snapshot() View
	Subscribe(fn func(View)) func()
	Reset()
}

// Compile-time interface check.
var _ Member = (*member[struct{}])(nil)

type member[T any] struct {
	def   Definition
	store *resource.Store[T]
	live  bool
}

func (m *member[T]) Definition() Definition { return m.def }

func (m *member[T]) Status() resource.Status { return m.store.Status() }

func (m *member[T]) FetchList(ctx context.Context, filters resource.Filters, page, pageSize int) (View, error) {
	if _, err := m.store.FetchList(ctx, filters, page, pageSize); err != nil {
		return View{}, err
	}
	return m.Snapshot(), nil
}

func (m *member[T]) FetchOne(ctx context.Context, id string) (any, error) {
	item, err := m.store.FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (m *member[T]) Open(ctx context.Context, id string) (any, error) {
	item, err := m.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (m *member[T]) Deselect() { m.store.Select(nil) }

func (m *member[T]) Mutate(ctx context.Context, id, operation string, payload any) (any, error) {
	item, err := m.store.Mutate(ctx, id, operation, payload)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (m *member[T]) Create(ctx context.Context, payload any) (any, error) {
	item, err := m.store.Create(ctx, payload)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (m *member[T]) ApplyRaw(raw []byte) (bool, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return false, fmt.Errorf("decode %s item: %w", m.def.Name, err)
	}
	// A feed item only joins a page that has been loaded.
	if m.live && m.store.Status() != resource.StatusIdle {
		m.store.Insert(item)
		return true, nil
	}
	return m.store.Apply(item), nil
}

func (m *member[T]) Snapshot() View {
	return m.view(m.store.Snapshot())
}

func (m *member[T]) Subscribe(fn func(View)) func() {
	return m.store.Subscribe(func(s resource.Snapshot[T]) { fn(m.view(s)) })
}

func (m *member[T]) Reset() { m.store.Reset() }

func (m *member[T]) view(s resource.Snapshot[T]) View {
	v := View{
		Resource:   m.def.Name,
		Items:      make([]any, len(s.Items)),
		Page:       s.Page,
		PageSize:   s.PageSize,
		TotalCount: s.TotalCount,
		Filters:    s.Filters,
		Status:     s.Status.String(),
		FetchedAt:  s.FetchedAt,
		Version:    s.Version,
	}
	for i, item := range s.Items {
		v.Items[i] = item
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	if s.Selected != nil {
		v.Selected = *s.Selected
	}
	return v
}

// ReportView is a type-erased report snapshot.
type ReportView struct {
	Report    string           `json:"report"`
	Data      any              `json:"data,omitempty"`
	Params    resource.Filters `json:"params"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Version   uint64           `json:"version"`
}

// ReportMember is one report in the hub, addressed by name.
type ReportMember interface {
	Definition() ReportDefinition
	Status() resource.Status
	Fetch(ctx context.Context, params resource.Filters) (ReportView, error)
	Snapshot() ReportView
	Subscribe(fn func(ReportView)) func()
	Reset()
}

// Compile-time interface check.
var _ ReportMember = (*report[struct{}])(nil)

type report[T any] struct {
	def   ReportDefinition
	value *resource.Value[T]
}

func (r *report[T]) Definition() ReportDefinition { return r.def }

func (r *report[T]) Status() resource.Status { return r.value.Status() }

func (r *report[T]) Fetch(ctx context.Context, params resource.Filters) (ReportView, error) {
	if _, err := r.value.Fetch(ctx, params); err != nil {
		return ReportView{}, err
	}
	return r.Snapshot(), nil
}

func (r *report[T]) Snapshot() ReportView { return r.view(r.value.Snapshot()) }

func (r *report[T]) Subscribe(fn func(ReportView)) func() {
	return r.value.Subscribe(func(s resource.ValueSnapshot[T]) { fn(r.view(s)) })
}

func (r *report[T]) Reset() { r.value.Reset() }

func (r *report[T]) view(s resource.ValueSnapshot[T]) ReportView {
	v := ReportView{
		Report:    r.def.Name,
		Params:    s.Params,
		Status:    s.Status.String(),
		FetchedAt: s.FetchedAt,
		Version:   s.Version,
	}
	if s.Data != nil {
		v.Data = *s.Data
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}
