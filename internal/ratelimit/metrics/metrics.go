package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections  *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter, by endpoint class",
		}, []string{"class"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingcenter_ratelimit_store_errors_total",
			Help: "Bucket store failures; requests are admitted when the store fails",
		}, []string{"class"}),
	}
}

func (m *Metrics) IncrementRejection(class string) {
	m.Rejections.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementStoreError(class string) {
	m.StoreErrors.WithLabelValues(class).Inc()
}
