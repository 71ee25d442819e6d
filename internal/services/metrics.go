package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the assistant pipeline
type Metrics struct {
	AnswerRequests *prometheus.CounterVec
	AnswerLatency  prometheus.Histogram
	AnswerErrors   *prometheus.CounterVec

	// Fallback chain observability
	StageSuccesses *prometheus.CounterVec
	StageFailures  *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Answer requests by resolved intent (analytics, helpdesk, followup)
		AnswerRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_assistant_requests_total",
			Help: "Total number of assistant requests by intent",
		}, []string{"intent"}),

		AnswerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulseboard_assistant_request_duration_seconds",
			Help:    "Assistant request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		AnswerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_assistant_errors_total",
			Help: "Total number of assistant errors by type",
		}, []string{"error_type"}),

		StageSuccesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_assistant_stage_successes_total",
			Help: "Fallback chain stage successes by stage",
		}, []string{"stage"}),

		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_assistant_stage_failures_total",
			Help: "Fallback chain stage failures by stage",
		}, []string{"stage"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records an assistant request with its resolved intent
func (m *Metrics) RecordRequest(intent string) {
	m.AnswerRequests.WithLabelValues(intent).Inc()
}

// RecordLatency records assistant request latency
func (m *Metrics) RecordLatency(seconds float64) {
	m.AnswerLatency.Observe(seconds)
}

// RecordError records an assistant error
func (m *Metrics) RecordError(errorType string) {
	m.AnswerErrors.WithLabelValues(errorType).Inc()
}

// RecordStageSuccess records a fallback stage success
func (m *Metrics) RecordStageSuccess(stage string) {
	m.StageSuccesses.WithLabelValues(stage).Inc()
}

// RecordStageFailure records a fallback stage failure
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}
