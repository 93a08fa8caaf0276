package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the search engine and its
// REST front end.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Search metrics
	IterationsTotal    *prometheus.CounterVec
	ConfigurationsSeen *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	BestObjective      *prometheus.GaugeVec
	ActiveWorkers      prometheus.Gauge
	ActiveRuns         prometheus.Gauge

	// Cache metrics
	CacheOffers     prometheus.Counter
	CacheAccepted   prometheus.Counter
	CacheDuplicates prometheus.Counter
	CacheSize       *prometheus.GaugeVec

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqs_requests_total",
				Help: "Total number of REST requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqs_request_duration_seconds",
				Help:    "REST request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqs_request_errors_total",
				Help: "Total number of REST request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		IterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqs_iterations_total",
				Help: "Total number of configurations visited, by run id and traversal mode",
			},
			[]string{"run_id", "mode"},
		),
		ConfigurationsSeen: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqs_configurations_evaluated_total",
				Help: "Total number of configurations that reached objective scoring, by run id",
			},
			[]string{"run_id"},
		),
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqs_run_duration_seconds",
				Help:    "Wall-clock duration of a completed run",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 3600},
			},
			[]string{"mode"},
		),
		BestObjective: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqs_best_objective",
				Help: "Lowest (best) objective value observed so far, by run id",
			},
			[]string{"run_id"},
		),
		ActiveWorkers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sqs_active_workers",
				Help: "Current number of worker goroutines evaluating configurations",
			},
		),
		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sqs_active_runs",
				Help: "Current number of in-flight search runs",
			},
		),

		CacheOffers: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sqs_cache_offers_total",
				Help: "Total number of configurations offered to a k-best cache",
			},
		),
		CacheAccepted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sqs_cache_accepted_total",
				Help: "Total number of configurations accepted into a k-best cache",
			},
		),
		CacheDuplicates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sqs_cache_duplicates_total",
				Help: "Total number of configurations rejected as exact duplicates",
			},
		),
		CacheSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqs_cache_size",
				Help: "Current number of entries retained in a run's cache",
			},
			[]string{"run_id"},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sqs_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sqs_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}

	return m
}

// RecordRequest records a REST request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a REST request error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordIterations adds delta to the configurations-visited counter for
// a run.
func (m *Metrics) RecordIterations(runID, mode string, delta int64) {
	m.IterationsTotal.WithLabelValues(runID, mode).Add(float64(delta))
}

// RecordConfigurationEvaluated records one configuration reaching
// objective scoring.
func (m *Metrics) RecordConfigurationEvaluated(runID string) {
	m.ConfigurationsSeen.WithLabelValues(runID).Inc()
}

// RecordRunCompleted records the duration of a finished run.
func (m *Metrics) RecordRunCompleted(mode string, duration time.Duration) {
	m.RunDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// UpdateBestObjective sets the best objective value observed so far for
// a run. Callers should only call this when the new value improves on
// (is less than) the previous one.
func (m *Metrics) UpdateBestObjective(runID string, value float64) {
	m.BestObjective.WithLabelValues(runID).Set(value)
}

// SetActiveWorkers sets the current worker goroutine count.
func (m *Metrics) SetActiveWorkers(count int) {
	m.ActiveWorkers.Set(float64(count))
}

// IncActiveRuns and DecActiveRuns track in-flight run count.
func (m *Metrics) IncActiveRuns() { m.ActiveRuns.Inc() }
func (m *Metrics) DecActiveRuns() { m.ActiveRuns.Dec() }

// RecordCacheOffer records the outcome of one cache.Offer call.
func (m *Metrics) RecordCacheOffer(accepted, duplicate bool) {
	m.CacheOffers.Inc()
	if duplicate {
		m.CacheDuplicates.Inc()
		return
	}
	if accepted {
		m.CacheAccepted.Inc()
	}
}

// RecordCacheOffers bulk-records a cache's lifetime offer/accept/
// duplicate counters, for callers reporting once after a run completes
// rather than per offer.
func (m *Metrics) RecordCacheOffers(offers, accepted, duplicates int64) {
	m.CacheOffers.Add(float64(offers))
	m.CacheAccepted.Add(float64(accepted))
	m.CacheDuplicates.Add(float64(duplicates))
}

// UpdateCacheSize sets the current cache occupancy for a run.
func (m *Metrics) UpdateCacheSize(runID string, size int) {
	m.CacheSize.WithLabelValues(runID).Set(float64(size))
}

// UpdateGoroutineCount updates goroutine count.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates memory usage.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
