package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. It also implements resolver.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	LookupsTotal     *prometheus.CounterVec
	AttemptsTotal    *prometheus.CounterVec
	LookupDuration   *prometheus.HistogramVec
	LookupsInFlight  prometheus.Gauge
	RateLimitedTotal prometheus.Counter
}

// NewMetrics creates the collectors and registers them on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubelink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubelink_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubelink_lookups_total",
				Help: "Total number of lookups by outcome",
			},
			[]string{"outcome"},
		),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubelink_tool_invocations_total",
				Help: "Total number of lookup tool invocations",
			},
			[]string{"invocation", "outcome"},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubelink_lookup_duration_seconds",
				Help:    "Time spent resolving a source URL",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
			[]string{"outcome"},
		),
		LookupsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tubelink_lookups_in_flight",
				Help: "Number of lookups currently running",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tubelink_rate_limited_total",
				Help: "Total number of requests rejected by the flood gate",
			},
		),
	}

	registry.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.LookupsTotal,
		metrics.AttemptsTotal,
		metrics.LookupDuration,
		metrics.LookupsInFlight,
		metrics.RateLimitedTotal,
	)

	return metrics
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordAttempt(invocation, outcome string) {
	m.AttemptsTotal.WithLabelValues(invocation, outcome).Inc()
}

func (m *Metrics) RecordLookup(outcome string, duration time.Duration) {
	m.LookupsTotal.WithLabelValues(outcome).Inc()
	m.LookupDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) SetLookupsInFlight(delta int) {
	m.LookupsInFlight.Add(float64(delta))
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}
