// Package metrics provides Prometheus metrics for the analytics service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ComputationsTotal   *prometheus.CounterVec
	ComputationDuration *prometheus.HistogramVec
	StoreQueriesTotal   *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ComputationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_computations_total",
				Help: "Analytics computations by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		ComputationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_computation_duration_seconds",
				Help:    "Analytics computation duration by kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		StoreQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_store_queries_total",
				Help: "Record store queries by operation.",
			},
			[]string{"op"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_errors_total",
				Help: "Errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ComputationsTotal)
	reg.MustRegister(m.ComputationDuration)
	reg.MustRegister(m.StoreQueriesTotal)
	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordComputation increments the computation counter.
func (m *Metrics) RecordComputation(kind, outcome string) {
	m.ComputationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveComputation records a computation duration.
func (m *Metrics) ObserveComputation(kind string, seconds float64) {
	m.ComputationDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordStoreQuery increments the store query counter.
func (m *Metrics) RecordStoreQuery(op string) {
	m.StoreQueriesTotal.WithLabelValues(op).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func (m *Metrics) RecordHTTPRequest(route string, code string) {
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
