// Package metrics exposes Prometheus counters for queries, mutations and
// HTTP requests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    *prometheus.CounterVec
	MutationsTotal  *prometheus.CounterVec
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_queries_total",
				Help: "Total number of collection queries",
			},
			[]string{"collection", "outcome"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_mutations_total",
				Help: "Total number of collection mutations",
			},
			[]string{"collection", "op", "outcome"},
		),
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelf_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery counts one query against collection.
func (m *Metrics) ObserveQuery(collection string, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(collection, Outcome(err)).Inc()
}

// ObserveMutation counts one add, update or remove against collection.
func (m *Metrics) ObserveMutation(collection, op string, err error) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(collection, op, Outcome(err)).Inc()
}
