package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics instruments carrier calls and the dispatch workflow.
type DispatchMetrics struct {
	carrierCalls    *prometheus.CounterVec
	carrierDuration *prometheus.HistogramVec
	dispatches      *prometheus.CounterVec
	bulkRuns        *prometheus.CounterVec
	bulkItems       *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	m := &DispatchMetrics{
		carrierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carrier_requests_total",
			Help: "HTTP attempts made to the carrier API, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		carrierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carrier_request_duration_seconds",
			Help:    "Latency of single carrier API attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_dispatch_total",
			Help: "Single order dispatch attempts, by result.",
		}, []string{"result"}),
		bulkRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_operation_runs_total",
			Help: "Bulk operations started, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_operation_items_total",
			Help: "Orders processed by bulk operations, by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.carrierCalls, m.carrierDuration, m.dispatches, m.bulkRuns, m.bulkItems)
	return m
}

// ObserveCarrierCall records one HTTP attempt against the carrier.
func (m *DispatchMetrics) ObserveCarrierCall(endpoint, outcome string, elapsed time.Duration) {
	if m == nil || m.carrierCalls == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	m.carrierCalls.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
	m.carrierDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncDispatch counts a single order dispatch by result (shipped, failed, invalid, unconfigured).
func (m *DispatchMetrics) IncDispatch(result string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveBulk records a finished bulk run and its per-item tallies.
func (m *DispatchMetrics) ObserveBulk(operation, outcome string, success, failed, skipped int) {
	if m == nil || m.bulkRuns == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.bulkRuns.WithLabelValues(operation, normalizeLabel(outcome)).Inc()
	m.bulkItems.WithLabelValues(operation, "success").Add(float64(success))
	m.bulkItems.WithLabelValues(operation, "error").Add(float64(failed))
	m.bulkItems.WithLabelValues(operation, "skipped").Add(float64(skipped))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
