package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func TestEngineMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveTransition("accept", nil)
	m.ObserveTransition("accept", errors.New("expired"))
	m.IncConflict("order_status")
	m.IncDisputeOpened("high")
	m.ObserveSettlement(decimal.RequireFromString("20400"), 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "buildmart_orders_transitions_total", "result", "error"); err != nil || got != 1 {
		t.Fatalf("expected one failed transition, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "buildmart_concurrency_conflicts_total", "operation", "order_status"); err != nil || got != 1 {
		t.Fatalf("expected one conflict, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "buildmart_disputes_opened_total", "priority", "high"); err != nil || got != 1 {
		t.Fatalf("expected one high dispute, got %f (%v)", got, err)
	}

	net := findMetricFamily(mfs, "buildmart_settlements_net_amount_total")
	if net == nil || net.GetMetric()[0].GetCounter().GetValue() != 20400 {
		t.Fatalf("expected net amount 20400")
	}
	claimed := findMetricFamily(mfs, "buildmart_settlements_orders_claimed_total")
	if claimed == nil || claimed.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 claimed orders")
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveTransition("accept", nil)
	m.IncConflict("x")
	m.IncDisputeOpened("low")
	m.ObserveSettlement(decimal.Zero, 0)

	NewEngineMetrics(nil).IncConflict("x")
}
