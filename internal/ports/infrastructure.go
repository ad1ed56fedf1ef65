package ports

import "time"

// MetricsCollector defines the interface for collecting classification
// metrics. Implementations could use Prometheus, StatsD, or other
// monitoring systems. Metrics collection is optional but recommended
// for production deployments.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like classifications, fallback
	// activations, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like pool size or selection-set
	// size.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like vote counts or
	// competence scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
