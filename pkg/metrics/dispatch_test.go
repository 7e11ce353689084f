package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDispatchMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)

	m.ObserveCarrierCall("shipments", "success", 250*time.Millisecond)
	m.ObserveCarrierCall("shipments", "transient_error", 100*time.Millisecond)
	m.IncDispatch("shipped")
	m.ObserveBulk("dispatch", "partial", 2, 1, 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "carrier_requests_total", map[string]string{"endpoint": "shipments", "outcome": "success"}); err != nil {
		t.Fatalf("fetch carrier calls: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 successful call, got %f", got)
	}

	if got, err := fetchHistogramCount(mfs, "carrier_request_duration_seconds", map[string]string{"endpoint": "shipments"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 observations, got %d", got)
	}

	if got, err := fetchCounterValue(mfs, "order_dispatch_total", map[string]string{"result": "shipped"}); err != nil || got != 1 {
		t.Fatalf("expected one shipped dispatch, got %f err=%v", got, err)
	}

	if got, err := fetchCounterValue(mfs, "bulk_operation_items_total", map[string]string{"operation": "dispatch", "result": "skipped"}); err != nil || got != 3 {
		t.Fatalf("expected 3 skipped items, got %f err=%v", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewDispatchMetrics(nil)
	m.ObserveCarrierCall("shipments", "success", time.Second)
	m.IncDispatch("failed")
	m.ObserveBulk("delete", "completed", 1, 0, 0)

	var nilMetrics *DispatchMetrics
	nilMetrics.IncDispatch("failed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramCount(mfs []*dto.MetricFamily, name string, labels map[string]string) (uint64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleCount(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
