// Package metrics holds Prometheus collectors for the integrity pipeline.
// All helpers are safe to call on a nil *Metrics so client components can
// run without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for integrity operations.
type Metrics struct {
	EventsRecorded  *prometheus.CounterVec
	EventsRejected  *prometheus.CounterVec
	RecordLatency   prometheus.Histogram
	StreamFailures  prometheus.Counter
	Deliveries      *prometheus.CounterVec
	BreachesRemoved prometheus.Counter
	ConsolePolls    *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
}

// New registers integrity collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examguard_integrity_events_recorded_total",
			Help: "Total number of integrity events accepted, labeled by event type",
		}, []string{"event_type"}),
		EventsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examguard_integrity_events_rejected_total",
			Help: "Total number of integrity events rejected, labeled by reason",
		}, []string{"reason"}),
		RecordLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "examguard_integrity_record_latency_seconds",
			Help:    "Latency of integrity event record operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		StreamFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "examguard_integrity_stream_publish_failures_total",
			Help: "Total number of integrity events that could not be published to the stream",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examguard_integrity_deliveries_total",
			Help: "Client-side integrity event deliveries, labeled by event type and result",
		}, []string{"event_type", "result"}),
		BreachesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "examguard_integrity_breaches_stripped_total",
			Help: "Total number of video processors removed by the enforcer",
		}),
		ConsolePolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examguard_integrity_console_polls_total",
			Help: "Console poll attempts, labeled by result",
		}, []string{"result"}),
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examguard_proctoring_tokens_issued_total",
			Help: "Total number of media access tokens issued, labeled by role",
		}, []string{"role"}),
	}
}

func (m *Metrics) IncrementRecorded(eventType string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncrementRejected(reason string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRecordLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.RecordLatency.Observe(d.Seconds())
}

func (m *Metrics) IncrementStreamFailure() {
	if m == nil {
		return
	}
	m.StreamFailures.Inc()
}

// IncrementDelivery counts one client delivery attempt. result is "ok" or "failed".
func (m *Metrics) IncrementDelivery(eventType, result string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) IncrementBreachStripped() {
	if m == nil {
		return
	}
	m.BreachesRemoved.Inc()
}

func (m *Metrics) IncrementConsolePoll(result string) {
	if m == nil {
		return
	}
	m.ConsolePolls.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokensIssued(role string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(role).Inc()
}
