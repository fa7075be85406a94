package session

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered on a per-server registry so several servers can
// live in one process.
type metrics struct {
	registry  *prometheus.Registry
	pageOps   *prometheus.CounterVec
	openPages prometheus.Gauge
	duration  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		pageOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ariasnap_page_operations_total",
			Help: "Page operations by operation and outcome",
		}, []string{"op", "outcome"}),
		openPages: f.NewGauge(prometheus.GaugeOpts{
			Name: "ariasnap_open_pages",
			Help: "Pages currently bound to a name",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ariasnap_page_operation_duration_seconds",
			Help:    "Page operation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"op"}),
	}
}

func (m *metrics) observe(op string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.pageOps.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(seconds)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
