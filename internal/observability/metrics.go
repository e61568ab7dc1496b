// Package observability provides Prometheus metrics for the runtime.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects runtime metrics: message flow, completion call
// performance, failure classification rates, and session counts.
// All recording helpers are nil-safe so call sites never need guards.
type Metrics struct {
	// MessageCounter tracks processed input messages.
	// Labels: outcome (completed|error|skipped)
	MessageCounter *prometheus.CounterVec

	// LLMRequestCounter counts completion calls.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures completion call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// InvocationFailures counts classified invocation failures.
	// Labels: kind (rate_limited|timeout|auth_failure|other_failure)
	InvocationFailures *prometheus.CounterVec

	// FallbackCounter counts rate-limit fallback responses served.
	FallbackCounter prometheus.Counter

	// ActiveSessions tracks the number of sessions held in memory.
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		MessageCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_messages_total",
				Help: "Total input messages processed by outcome",
			},
			[]string{"outcome"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_llm_requests_total",
				Help: "Total completion calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_llm_request_duration_seconds",
				Help:    "Duration of completion calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		InvocationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_invocation_failures_total",
				Help: "Classified invocation failures by kind",
			},
			[]string{"kind"},
		),
		FallbackCounter: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_fallback_responses_total",
				Help: "Rate-limit fallback placeholder responses served",
			},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_active_sessions",
				Help: "Sessions currently held in memory",
			},
		),
	}
}

// RecordMessage records an input message outcome.
func (m *Metrics) RecordMessage(outcome string) {
	if m == nil {
		return
	}
	m.MessageCounter.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest records one completion call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// RecordFailure records a classified invocation failure.
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.InvocationFailures.WithLabelValues(kind).Inc()
}

// RecordFallback records a fallback placeholder response.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.FallbackCounter.Inc()
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
