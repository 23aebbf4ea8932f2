package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the load shaper
type Metrics struct {
	// Burst metrics
	BurstsSubmitted *prometheus.CounterVec
	BurstFailures   *prometheus.CounterVec
	BurstDTU        prometheus.Histogram
	BurstDuration   prometheus.Histogram

	// Session metrics
	ActiveTenantJobs prometheus.Gauge
	DiscoveryCycles  prometheus.Counter
	TenantsTracked   prometheus.Gauge

	// Submission metrics
	SubmissionRetries prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		BurstsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadshaper_bursts_submitted_total",
				Help: "Total number of load bursts submitted",
			},
			[]string{"tenant"},
		),

		BurstFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadshaper_burst_failures_total",
				Help: "Total number of failed burst submissions",
			},
			[]string{"tenant"},
		),

		BurstDTU: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loadshaper_burst_dtu",
				Help:    "Distribution of submitted burst DTU levels",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),

		BurstDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loadshaper_burst_duration_seconds",
				Help:    "Distribution of submitted burst durations",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 90, 120},
			},
		),

		ActiveTenantJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loadshaper_active_tenant_jobs",
				Help: "Number of currently running per-tenant load jobs",
			},
		),

		DiscoveryCycles: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loadshaper_discovery_cycles_total",
				Help: "Total number of tenant directory discovery passes",
			},
		),

		TenantsTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loadshaper_tenants_tracked",
				Help: "Number of tenant keys tracked in the job registry",
			},
		),

		SubmissionRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loadshaper_submission_retries_total",
				Help: "Total number of transient submission retries",
			},
		),
	}
}

// RecordBurst records a successful burst submission
func (m *Metrics) RecordBurst(tenant string, dtu, durationSeconds int) {
	m.BurstsSubmitted.WithLabelValues(tenant).Inc()
	m.BurstDTU.Observe(float64(dtu))
	m.BurstDuration.Observe(float64(durationSeconds))
}

// RecordBurstFailure records a failed burst submission
func (m *Metrics) RecordBurstFailure(tenant string) {
	m.BurstFailures.WithLabelValues(tenant).Inc()
}

// RecordDiscoveryCycle records one directory polling pass
func (m *Metrics) RecordDiscoveryCycle(tracked int) {
	m.DiscoveryCycles.Inc()
	m.TenantsTracked.Set(float64(tracked))
}
