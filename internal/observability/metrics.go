package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for authorizer and list-todos traffic
type Metrics struct {
	registry *prometheus.Registry

	authorizerDecisions *prometheus.CounterVec
	listRequests        *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authorizerDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todos_authorizer_decisions_total",
				Help: "Tracks the number of authorization decisions by effect and reason.",
			}, []string{"effect", "reason"},
		),
		listRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todos_list_requests_total",
				Help: "Tracks the number of list-todos requests by outcome.",
			}, []string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todos_request_duration_seconds",
				Help:    "Tracks the latencies of authorizer and list-todos invocations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"handler"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authorizerDecisions,
		m.listRequests,
		m.requestDuration,
	)
	return m
}

// RecordDecision counts an authorization decision
func (m *Metrics) RecordDecision(effect, reason string) {
	if m == nil {
		return
	}
	m.authorizerDecisions.WithLabelValues(effect, reason).Inc()
}

// RecordListRequest counts a list-todos request
func (m *Metrics) RecordListRequest(status string) {
	if m == nil {
		return
	}
	m.listRequests.WithLabelValues(status).Inc()
}

// ObserveDuration records how long a handler took since start
func (m *Metrics) ObserveDuration(handler string, start time.Time) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
