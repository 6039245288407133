package resource

import "sync"

// fanout hands versioned snapshots to subscribers. Callbacks run without
// any lock held, so they may call back into their owner. Only one goroutine
// delivers at a time; a snapshot published while another delivery is
// running is parked and picked up by that goroutine, newest version only.
type fanout[S any] struct {
	mu        sync.Mutex
	subs      map[uint64]func(S)
	nextID    uint64
	delivered uint64
	pending   *S
	pendingV  uint64
	draining  bool
}

func (f *fanout[S]) subscribe(fn func(S)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[uint64]func(S))
	}
	f.nextID++
	id := f.nextID
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// publish delivers snap unless a snapshot at or after version was already
// delivered or parked.
func (f *fanout[S]) publish(version uint64, snap S) {
	f.mu.Lock()
	if version <= f.delivered || (f.pending != nil && version <= f.pendingV) {
		f.mu.Unlock()
		return
	}
	f.pending, f.pendingV = &snap, version
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	f.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			f.mu.Lock()
			f.draining = false
			f.pending = nil
			f.mu.Unlock()
			panic(r)
		}
	}()

	for {
		f.mu.Lock()
		next, v := f.pending, f.pendingV
		f.pending = nil
		if next == nil {
			f.draining = false
			f.mu.Unlock()
			return
		}
		f.delivered = v
		fns := make([]func(S), 0, len(f.subs))
		for _, fn := range f.subs {
			fns = append(fns, fn)
		}
		f.mu.Unlock()

		for _, fn := range fns {
			fn(*next)
		}
	}
}
