package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit persistence.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_audit_events_emitted_total",
			Help: "Audit events persisted, by action",
		}, []string{"action"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trainingcenter_audit_persist_failures_total",
			Help: "Audit events that could not be persisted",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainingcenter_audit_persist_duration_seconds",
			Help:    "Time to persist one audit event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncEventsEmitted(action string) {
	m.EventsEmitted.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(start time.Time) {
	m.PersistDuration.Observe(time.Since(start).Seconds())
}
