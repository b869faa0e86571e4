package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// EngineMetrics counts domain outcomes of the order, dispute and settlement
// services. A nil receiver is a no-op.
type EngineMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	disputes    *prometheus.CounterVec
	settlements prometheus.Counter
	settledNet  prometheus.Counter
	claimed     prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	m := &EngineMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order lifecycle transitions by event and result.",
		}, []string{"event", "result"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Compare-and-set writes that lost a race.",
		}, []string{"operation"}),
		disputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "disputes",
			Name:      "opened_total",
			Help:      "Disputes opened by priority.",
		}, []string{"priority"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlements",
			Name:      "created_total",
			Help:      "Settlements created by batch runs.",
		}),
		settledNet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlements",
			Name:      "net_amount_total",
			Help:      "Net amount batched into settlements.",
		}),
		claimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlements",
			Name:      "orders_claimed_total",
			Help:      "Orders claimed into settlements.",
		}),
	}
	reg.MustRegister(m.transitions, m.conflicts, m.disputes, m.settlements, m.settledNet, m.claimed)
	return m
}

// ObserveTransition records one attempted order transition.
func (m *EngineMetrics) ObserveTransition(event string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transitions.WithLabelValues(normalizeLabel(event), result).Inc()
}

// IncConflict records a lost compare-and-set.
func (m *EngineMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncDisputeOpened records a newly opened dispute.
func (m *EngineMetrics) IncDisputeOpened(priority string) {
	if m == nil || m.disputes == nil {
		return
	}
	m.disputes.WithLabelValues(normalizeLabel(priority)).Inc()
}

// ObserveSettlement records a settlement produced by a batch run.
func (m *EngineMetrics) ObserveSettlement(net decimal.Decimal, orders int) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.Inc()
	m.settledNet.Add(net.InexactFloat64())
	m.claimed.Add(float64(orders))
}
