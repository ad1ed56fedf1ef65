// Package middleware provides cross-cutting concerns for the dynsel engine:
// metrics collection and classifier decorators such as rate limiting.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dynsel/dynsel/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of classification volume,
// fallback activations, prediction behavior, and latency for the dynamic
// selection engine.
type PrometheusMetrics struct {
	classificationsTotal *prometheus.CounterVec
	fallbackTotal        *prometheus.CounterVec
	predictionsTotal     *prometheus.CounterVec
	executionLatency     *prometheus.HistogramVec
	votesCast            *prometheus.HistogramVec
	systemGauges         *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		classificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynsel_classifications_total",
				Help: "Total number of query classifications, by strategy and status.",
			},
			[]string{"strategy", "status"},
		),
		fallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynsel_fallback_total",
				Help: "Total number of classifications where the uniform-weight fallback fired.",
			},
			[]string{"strategy"},
		),
		predictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynsel_predictions_total",
				Help: "Total number of base classifier predict calls.",
			},
			[]string{"strategy", "status"},
		),
		executionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynsel_operation_duration_seconds",
				Help:    "Execution time of dynamic selection operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "strategy"},
		),
		votesCast: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynsel_votes_cast",
				Help:    "Distribution of vote sequence lengths per classification.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"strategy"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dynsel_system_state",
				Help: "Current system state values for the dynamic selection engine.",
			},
			[]string{"metric", "strategy"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, strategyLabel(labels)).
		Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	strategy := strategyLabel(labels)
	status, ok := labels["status"]
	if !ok {
		status = "success"
	}

	switch metric {
	case "classifications_total":
		pm.classificationsTotal.WithLabelValues(strategy, status).Add(value)
	case "fallback_total":
		pm.fallbackTotal.WithLabelValues(strategy).Add(value)
	case "predictions_total":
		pm.predictionsTotal.WithLabelValues(strategy, status).Add(value)
	default:
		pm.classificationsTotal.WithLabelValues(strategy, metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric, strategyLabel(labels)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	strategy := strategyLabel(labels)
	switch metric {
	case "votes_cast":
		pm.votesCast.WithLabelValues(strategy).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, strategy).Observe(value)
	}
}

func strategyLabel(labels map[string]string) string {
	if s, ok := labels["strategy"]; ok {
		return s
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
