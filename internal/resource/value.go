package resource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetcher loads one value, such as a dashboard report, for a set of query
// parameters.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, params Filters) (T, error)
}

// ValueSnapshot is a read-only copy of a Value. Data is nil until the first
// successful fetch and survives later failures.
type ValueSnapshot[T any] struct {
	Data      *T
	Params    Filters
	Status    Status
	Err       error
	FetchedAt time.Time
	Version   uint64
}

// Value caches a single fetched value with the same status machine and
// sequence fencing as Store. All methods are safe for concurrent use.
type Value[T any] struct {
	name    string
	fetcher Fetcher[T]
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
	copier  copier[T]

	mu        sync.RWMutex
	data      *T
	params    Filters
	machine   *statusMachine
	failure   error
	fetchedAt time.Time
	issued    uint64
	applied   uint64
	version   uint64

	fan fanout[ValueSnapshot[T]]
}

// NewValue creates an idle value called name. Only the logger, metrics and
// clock options apply.
func NewValue[T any](name string, fetcher Fetcher[T], opts ...Option) *Value[T] {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	v := &Value[T]{
		name:    name,
		fetcher: fetcher,
		logger:  o.logger.Named(name),
		metrics: o.metrics,
		now:     o.now,
		params:  Filters{},
		machine: newStatusMachine(),
	}
	v.copier = newCopier[T](v.logger)
	return v
}

// Name returns the name the value was created with.
func (v *Value[T]) Name() string { return v.name }

// Fetch loads the value for params. The response is applied only if no
// newer fetch settled first; otherwise ErrSuperseded is returned. A failure
// marks the value Failed and keeps the previous data.
func (v *Value[T]) Fetch(ctx context.Context, params Filters) (T, error) {
	var zero T
	params = params.Clone()

	v.mu.Lock()
	v.issued++
	seq := v.issued
	var snap *ValueSnapshot[T]
	if v.machine.current() != StatusLoading {
		v.transitionLocked(eventFetch)
		snap = v.snapshotLocked()
	}
	v.mu.Unlock()
	v.notify(snap)

	start := v.now()
	data, err := v.fetcher.Fetch(ctx, params)
	elapsed := v.now().Sub(start)

	v.mu.Lock()
	if seq <= v.applied {
		v.mu.Unlock()
		v.metrics.observeFetch(v.name, resultSuperseded, elapsed)
		return zero, ErrSuperseded
	}
	v.applied = seq

	if err != nil {
		ferr := &FetchError{Resource: v.name, Op: "fetch", Err: err}
		v.failure = ferr
		v.transitionLocked(eventFail)
		snap = v.snapshotLocked()
		v.mu.Unlock()
		v.notify(snap)
		v.metrics.observeFetch(v.name, resultFailed, elapsed)
		v.logger.Warn("fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		return zero, ferr
	}

	kept := v.copier.clone(data)
	v.data = &kept
	v.params = params
	v.failure = nil
	v.fetchedAt = v.now()
	v.transitionLocked(eventSucceed)
	snap = v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)
	v.metrics.observeFetch(v.name, resultOK, elapsed)
	return v.copier.clone(data), nil
}

// Get returns a copy of the cached data and whether there is any.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.data == nil {
		var zero T
		return zero, false
	}
	return v.copier.clone(*v.data), true
}

// Params returns the parameters of the data currently held.
func (v *Value[T]) Params() Filters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.params.Clone()
}

// Status returns the current fetch status.
func (v *Value[T]) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.machine.current()
}

// Snapshot returns a copy of the value state.
func (v *Value[T]) Snapshot() ValueSnapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return *v.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every visible change,
// with the same delivery rules as Store.Subscribe.
func (v *Value[T]) Subscribe(fn func(ValueSnapshot[T])) func() {
	return v.fan.subscribe(fn)
}

// Reset drops the data and returns to Idle. Responses to fetches issued
// before Reset are discarded.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	v.applied = v.issued
	v.data = nil
	v.params = Filters{}
	v.failure = nil
	v.fetchedAt = time.Time{}
	v.transitionLocked(eventReset)
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)
}

func (v *Value[T]) transitionLocked(event string) {
	if err := v.machine.fire(event); err != nil {
		v.logger.Error("invalid status transition", zap.String("event", event), zap.Error(err))
	}
	v.version++
}

func (v *Value[T]) snapshotLocked() *ValueSnapshot[T] {
	snap := &ValueSnapshot[T]{
		Params:    v.params.Clone(),
		Status:    v.machine.current(),
		FetchedAt: v.fetchedAt,
		Version:   v.version,
	}
	if v.data != nil {
		d := v.copier.clone(*v.data)
		snap.Data = &d
	}
	if snap.Status == StatusFailed {
		snap.Err = v.failure
	}
	return snap
}

func (v *Value[T]) notify(snap *ValueSnapshot[T]) {
	if snap != nil {
		v.fan.publish(snap.Version, *snap)
	}
}
