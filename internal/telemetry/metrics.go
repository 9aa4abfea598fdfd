// Package telemetry exposes Prometheus metrics for the scheduler.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/interview-scheduler/internal/interview"
)

const namespace = "interview_scheduler"

// Metrics owns a registry and every collector the service reports to.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	exhausted     *prometheus.CounterVec
	oracle        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Proposal state transitions applied, by event.",
		}, []string{"event"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_conflicts_total",
			Help:      "Compare-and-swap writes that lost a race and were retried.",
		}, []string{"operation"}),
		exhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_retries_exhausted_total",
			Help:      "Operations that gave up after the maximum number of attempts.",
		}, []string{"operation"}),
		oracle: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Availability oracle calls, by outcome.",
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Events that were not delivered to the notification channel.",
		}, []string{"reason"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TransitionApplied implements application.Metrics.
func (m *Metrics) TransitionApplied(event interview.EventType) {
	m.transitions.WithLabelValues(string(event)).Inc()
}

// WriteConflict implements application.Metrics.
func (m *Metrics) WriteConflict(operation string) {
	m.conflicts.WithLabelValues(operation).Inc()
}

// WriteExhausted implements application.Metrics.
func (m *Metrics) WriteExhausted(operation string) {
	m.exhausted.WithLabelValues(operation).Inc()
}

// OracleResult implements application.Metrics.
func (m *Metrics) OracleResult(outcome string) {
	m.oracle.WithLabelValues(outcome).Inc()
}

// NotificationDropped implements notify.DropRecorder.
func (m *Metrics) NotificationDropped(reason string) {
	m.notifications.WithLabelValues(reason).Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}
