// Package metrics registers the service's Prometheus collectors: connection
// pool gauges for the durable store's pools and retry-attempt counters for
// resilience.RetryPolicy.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolMetrics exports connection-pool gauges labelled by pool name (e.g.
// "master", "replica").
type PoolMetrics struct {
	TotalConns   *prometheus.GaugeVec
	AcquiredConns *prometheus.GaugeVec
	IdleConns    *prometheus.GaugeVec
	AcquireCount *prometheus.CounterVec
	Errors       *prometheus.CounterVec
}

var (
	poolMetricsOnce sync.Once
	poolMetrics     *PoolMetrics
)

// NewPoolMetrics returns the process-wide pool metrics singleton, registering
// it with the default Prometheus registry on first call.
func NewPoolMetrics() *PoolMetrics {
	poolMetricsOnce.Do(func() {
		poolMetrics = &PoolMetrics{
			TotalConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "rankvault",
				Subsystem: "pool",
				Name:      "total_connections",
				Help:      "Total connections currently held by the pool.",
			}, []string{"pool"}),
			AcquiredConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "rankvault",
				Subsystem: "pool",
				Name:      "acquired_connections",
				Help:      "Connections currently checked out of the pool.",
			}, []string{"pool"}),
			IdleConns: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "rankvault",
				Subsystem: "pool",
				Name:      "idle_connections",
				Help:      "Connections currently idle in the pool.",
			}, []string{"pool"}),
			AcquireCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rankvault",
				Subsystem: "pool",
				Name:      "acquire_total",
				Help:      "Total successful pool check-outs.",
			}, []string{"pool"}),
			Errors: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rankvault",
				Subsystem: "pool",
				Name:      "errors_total",
				Help:      "Total pool connection errors.",
			}, []string{"pool", "kind"}),
		}
	})
	return poolMetrics
}

// RetryMetrics tracks resilience.WithRetry outcomes.
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

var (
	retryMetricsOnce sync.Once
	retryMetrics     *RetryMetrics
)

// NewRetryMetrics returns the process-wide retry metrics singleton.
func NewRetryMetrics() *RetryMetrics {
	retryMetricsOnce.Do(func() {
		retryMetrics = &RetryMetrics{
			AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rankvault",
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total retry attempts by operation, outcome, and error type.",
			}, []string{"operation", "outcome", "error_type"}),
			BackoffSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "rankvault",
				Subsystem: "retry",
				Name:      "backoff_seconds",
				Help:      "Backoff delay before a retry attempt.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			}, []string{"operation"}),
			FinalAttemptsTotal: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "rankvault",
				Subsystem: "retry",
				Name:      "final_attempts_total",
				Help:      "Number of attempts until final success or failure.",
				Buckets:   []float64{1, 2, 3, 4, 5, 10, 20},
			}, []string{"operation", "outcome"}),
		}
	})
	return retryMetrics
}

// RecordAttempt records a single retry attempt.
func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
}

// RecordBackoff records the backoff delay before a retry attempt.
func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

// RecordFinalAttempt records the final attempt count when an operation completes.
func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}
