package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("shipment_status_sync", nil, time.Second)
	m.ObserveRun("shipment_status_sync", errors.New("boom"), time.Second)
	m.IncSyncItem("updated")
	m.IncSyncItem("updated")
	m.IncSyncItem("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, result := range []string{"success", "failure"} {
		got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "shipment_status_sync", "result": result})
		if err != nil || got != 1 {
			t.Fatalf("expected one %s run, got %f err=%v", result, got, err)
		}
	}
	if got, err := fetchHistogramCount(mfs, "cron_job_duration_seconds", map[string]string{"job": "shipment_status_sync"}); err != nil || got != 2 {
		t.Fatalf("expected 2 duration observations, got %d err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "shipment_sync_items_total", map[string]string{"result": "updated"}); err != nil || got != 2 {
		t.Fatalf("expected 2 updated items, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "shipment_sync_items_total", map[string]string{"result": "unknown"}); err != nil || got != 1 {
		t.Fatalf("expected empty result normalized, got %f err=%v", got, err)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", nil, time.Second)
	m.IncSyncItem("updated")
	NewCronJobMetrics(nil).IncSyncItem("updated")
}
