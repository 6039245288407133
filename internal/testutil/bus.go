package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/marketdesk/internal/event"
)

// Recorder is a wildcard subscriber that records every event published on a
// bus for later inspection.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
	signal chan struct{}
}

// NewRecorder subscribes a Recorder to every topic of bus. The subscription
// ends when the test completes.
func NewRecorder(t *testing.T, bus *event.Bus) *Recorder {
	t.Helper()
	r := &Recorder{signal: make(chan struct{}, 1)}
	unsubscribe := bus.SubscribeAll(func(_ context.Context, e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
		select {
		case r.signal <- struct{}{}:
		default:
		}
	})
	t.Cleanup(unsubscribe)
	return r
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Topic returns the recorded events with the given topic.
func (r *Recorder) Topic(topic string) []event.Event {
	var out []event.Event
	for _, e := range r.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until at least n events were recorded or the timeout
// passes, and reports whether n was reached.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		got := len(r.events)
		r.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-r.signal:
		case <-deadline.C:
			return false
		}
	}
}

// Reset clears all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
