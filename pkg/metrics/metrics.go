// Package metrics defines the Prometheus collectors used by the index client
// and the audit layer, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CallsTotal           *prometheus.CounterVec
	CallDuration         *prometheus.HistogramVec
	SinkFailuresTotal    *prometheus.CounterVec
	RegistryLookupsTotal *prometheus.CounterVec
	IndexOperationsTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexkit_calls_total",
				Help: "Store calls by method and status (or failure kind).",
			},
			[]string{"method", "status"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexkit_call_duration_seconds",
				Help:    "Store call latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		SinkFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexkit_sink_failures_total",
				Help: "Audit sink failures by sink.",
			},
			[]string{"sink"},
		),
		RegistryLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexkit_registry_lookups_total",
				Help: "Registry cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		IndexOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexkit_index_operations_total",
				Help: "Index list, create, delete and load operations by result.",
			},
			[]string{"op", "result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexkit_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.CallsTotal,
		m.CallDuration,
		m.SinkFailuresTotal,
		m.RegistryLookupsTotal,
		m.IndexOperationsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveCall records one completed call. status is the HTTP status code, or
// the failure kind when no response arrived.
func (m *Metrics) ObserveCall(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(method, status).Inc()
	m.CallDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) SinkFailed(sink string) {
	if m == nil {
		return
	}
	m.SinkFailuresTotal.WithLabelValues(sink).Inc()
}

func (m *Metrics) RegistryLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RegistryLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IndexOperation(op, result string) {
	if m == nil {
		return
	}
	m.IndexOperationsTotal.WithLabelValues(op, result).Inc()
}

// SetBreakerState records a circuit breaker state as its numeric value.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
