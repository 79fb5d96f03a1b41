package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for certificate issuance and lookup.
type Metrics struct {
	CertificatesIssued  *prometheus.CounterVec
	CertificatesUpdated prometheus.Counter
	CertificatesDeleted prometheus.Counter
	DuplicateWarnings   prometheus.Counter
	StoreConflicts      prometheus.Counter
	ComposeDuration     *prometheus.HistogramVec
	Lookups             *prometheus.CounterVec
	LookupDuration      prometheus.Histogram
	EnrichmentFailures  *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// New registers the certificate metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CertificatesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_certificates_issued_total",
			Help: "Total number of certificates created, by status",
		}, []string{"status"}),
		CertificatesUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "trainingcenter_certificates_updated_total",
			Help: "Total number of certificate edits",
		}),
		CertificatesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "trainingcenter_certificates_deleted_total",
			Help: "Total number of certificates deleted",
		}),
		DuplicateWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "trainingcenter_certificate_duplicate_warnings_total",
			Help: "Creates for a pair that already held certificates",
		}),
		StoreConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "trainingcenter_certificate_store_conflicts_total",
			Help: "Creates rejected by display id or pair version uniqueness",
		}),
		ComposeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainingcenter_certificate_compose_duration_seconds",
			Help:    "Duration of create and update operations",
			Buckets: durationBuckets,
		}, []string{"op"}),
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_certificate_lookups_total",
			Help: "Public lookups, by how the token resolved",
		}, []string{"result"}),
		LookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainingcenter_certificate_lookup_duration_seconds",
			Help:    "Duration of public lookups including enrichment",
			Buckets: durationBuckets,
		}),
		EnrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_certificate_enrichment_failures_total",
			Help: "Live entity reads that fell back to snapshots",
		}, []string{"entity"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_certificate_notifications_total",
			Help: "Certificate-issued notifications, by outcome",
		}, []string{"outcome"}),
		ActiveSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "trainingcenter_certificate_active_subscriptions",
			Help: "Open listing subscriptions",
		}),
	}
}

func (m *Metrics) IncrementIssued(status string) {
	m.CertificatesIssued.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementUpdated() {
	m.CertificatesUpdated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.CertificatesDeleted.Inc()
}

func (m *Metrics) IncrementDuplicateWarning() {
	m.DuplicateWarnings.Inc()
}

func (m *Metrics) IncrementStoreConflict() {
	m.StoreConflicts.Inc()
}

// ObserveCompose records a create or update duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCompose(op string, start time.Time) {
	m.ComposeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncrementLookup records how a lookup resolved: id, display_id, names or not_found.
func (m *Metrics) IncrementLookup(result string) {
	m.Lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLookup(start time.Time) {
	m.LookupDuration.Observe(time.Since(start).Seconds())
}

// IncrementEnrichmentFailure records a student or course read that fell back.
func (m *Metrics) IncrementEnrichmentFailure(entity string) {
	m.EnrichmentFailures.WithLabelValues(entity).Inc()
}

// IncrementNotification records delivered, fallback, dropped or failed.
func (m *Metrics) IncrementNotification(outcome string) {
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	m.ActiveSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	m.ActiveSubscriptions.Dec()
}
