package resource

import (
	"maps"
	"time"
)

// Page size bounds applied by FetchList.
const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Filters maps a filter name (search, status, type, ...) to its scalar value.
type Filters map[string]string

// Clone returns an independent copy. A nil receiver yields an empty map.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	maps.Copy(out, f)
	return out
}

// Query is one list request as handed to the transport.
type Query struct {
	Filters  Filters
	Page     int
	PageSize int
}

// Page is a transport's answer to a list request. Page and PageSize echo what
// the server reports; zero means the server did not say.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// List is the list view a store holds for its resource.
type List[T any] struct {
	Items      []T     `json:"items"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalCount int     `json:"totalCount"`
	Filters    Filters `json:"filters"`
}

// Status is the fetch state of a store.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of everything a store holds. Err is set only
// when Status is StatusFailed. Version increases with every visible change.
type Snapshot[T any] struct {
	List[T]
	Status    Status
	Err       error
	Selected  *T
	FetchedAt time.Time
	Version   uint64
}

// Failed reports whether the last settled fetch failed.
func (s Snapshot[T]) Failed() bool {
	return s.Status == StatusFailed
}

// Loading reports whether a fetch is in flight.
func (s Snapshot[T]) Loading() bool {
	return s.Status == StatusLoading
}
