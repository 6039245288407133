package resource

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK         = "ok"
	resultFailed     = "failed"
	resultSuperseded = "superseded"
)

// Metrics holds the Prometheus collectors shared by every store. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	mutations     *prometheus.CounterVec
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdesk",
			Subsystem: "store",
			Name:      "fetch_total",
			Help:      "List and detail fetches by resource and result.",
		}, []string{"resource", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketdesk",
			Subsystem: "store",
			Name:      "fetch_duration_seconds",
			Help:      "Time from dispatch to settle of list fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdesk",
			Subsystem: "store",
			Name:      "mutation_total",
			Help:      "Mutations by resource, operation and result.",
		}, []string{"resource", "operation", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchDuration, m.mutations)
	}
	return m
}

func (m *Metrics) observeFetch(resource, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, result).Inc()
	if elapsed > 0 {
		m.fetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeMutation(resource, operation, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(resource, operation, result).Inc()
}
