package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	started := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	m.ObserveRun("settlement-batch", started, started.Add(1500*time.Millisecond), nil)
	m.ObserveRun("settlement-batch", started, started.Add(time.Second), errors.New("vendor locked"))
	m.ObserveRun("order-expiry", started, started.Add(time.Second), errors.New("timeout"))
	m.IncSkippedCycle()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "buildmart_cron_job_runs_total")
	if runs == nil {
		t.Fatal("runs counter not exported")
	}
	counts := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		key := labelValue(metric.GetLabel(), "job") + "/" + labelValue(metric.GetLabel(), "outcome")
		counts[key] = metric.GetCounter().GetValue()
	}
	want := map[string]float64{
		"settlement-batch/success": 1,
		"settlement-batch/failure": 1,
		"order-expiry/failure":     1,
	}
	for key, value := range want {
		if counts[key] != value {
			t.Fatalf("expected %s=%v, got %v", key, value, counts)
		}
	}

	if got, err := fetchHistogramSum(mfs, "buildmart_cron_job_duration_seconds", "job", "settlement-batch"); err != nil || got != 2.5 {
		t.Fatalf("expected 2.5s of settlement runs, got %f (%v)", got, err)
	}

	last := findMetricFamily(mfs, "buildmart_cron_job_last_success_timestamp_seconds")
	if last == nil || len(last.GetMetric()) != 1 {
		t.Fatalf("expected a single last-success series, got %v", last)
	}
	if got := last.GetMetric()[0].GetGauge().GetValue(); got != float64(started.Add(1500*time.Millisecond).Unix()) {
		t.Fatalf("unexpected last success %f", got)
	}

	skipped := findMetricFamily(mfs, "buildmart_cron_cycles_skipped_total")
	if skipped == nil || skipped.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one skipped cycle")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveRun("x", time.Now(), time.Now(), nil)
	m.IncSkippedCycle()
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, label := range labels {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestCronJobMetricsLabelsUnnamedJobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	now := time.Now()
	m.ObserveRun("", now, now, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	runs := findMetricFamily(mfs, "buildmart_cron_job_runs_total")
	if runs == nil || len(runs.GetMetric()) != 1 {
		t.Fatalf("expected one runs series, got %v", runs)
	}
	if got := labelValue(runs.GetMetric()[0].GetLabel(), "job"); got != "unknown" {
		t.Fatalf("expected job label unknown, got %q", got)
	}
}
