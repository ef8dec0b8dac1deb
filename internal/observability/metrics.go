package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op, so callers
// do not branch on METRICS_ENABLED.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	events *prometheus.CounterVec
}

// NewMetrics registers the directory's collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		apiLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		apiInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "directory_http_inflight_requests",
			Help: "HTTP requests currently being served",
		}),
		storeOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_store_operations_total",
				Help: "Record store operations by outcome",
			},
			[]string{"op", "status"},
		),
		storeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_store_operation_duration_seconds",
				Help:    "Duration of record store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_change_events_total",
				Help: "Change events published to subscribers",
			},
			[]string{"op", "status"},
		),
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveStore records one store operation. status is "ok" or an error code.
func (m *Metrics) ObserveStore(op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, status).Inc()
	m.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) ObserveEvent(op, status string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(op, status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
