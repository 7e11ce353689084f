package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics instruments the scheduled worker and the shipment status sync.
type CronJobMetrics struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	syncItems *prometheus.CounterVec
}

// NewCronJobMetrics registers the worker metrics. A nil registerer yields a
// no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Scheduled job executions, by job and result.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of scheduled jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		syncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipment_sync_items_total",
			Help: "Shipments visited by the status sync, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.runs, m.duration, m.syncItems)
	return m
}

// ObserveRun records one job execution.
func (m *CronJobMetrics) ObserveRun(job string, err error, elapsed time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(job, result).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// IncSyncItem counts one shipment handled by the status sync.
func (m *CronJobMetrics) IncSyncItem(result string) {
	if m == nil || m.syncItems == nil {
		return
	}
	m.syncItems.WithLabelValues(normalizeLabel(result)).Inc()
}
