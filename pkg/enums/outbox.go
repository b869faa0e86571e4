package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateIssue      OutboxAggregateType = "order_issue"
	AggregateDispute    OutboxAggregateType = "dispute"
	AggregateSettlement OutboxAggregateType = "settlement"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateIssue,
	AggregateDispute,
	AggregateSettlement,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStateChanged     OutboxEventType = "order_state_changed"
	EventOrderExpired          OutboxEventType = "order_expired"
	EventOrderRefundRequired   OutboxEventType = "order_refund_required"
	EventOrderPaymentRecorded  OutboxEventType = "order_payment_recorded"
	EventOrderDeductionApplied OutboxEventType = "order_deduction_applied"
	EventIssueReported         OutboxEventType = "issue_reported"
	EventIssueResolved         OutboxEventType = "issue_resolved"
	EventDisputeOpened         OutboxEventType = "dispute_opened"
	EventDisputeAssigned       OutboxEventType = "dispute_assigned"
	EventDisputeEscalated      OutboxEventType = "dispute_escalated"
	EventDisputeResolved       OutboxEventType = "dispute_resolved"
	EventSettlementCreated     OutboxEventType = "settlement_created"
	EventSettlementProcessed   OutboxEventType = "settlement_processed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventOrderExpired,
	EventOrderRefundRequired,
	EventOrderPaymentRecorded,
	EventOrderDeductionApplied,
	EventIssueReported,
	EventIssueResolved,
	EventDisputeOpened,
	EventDisputeAssigned,
	EventDisputeEscalated,
	EventDisputeResolved,
	EventSettlementCreated,
	EventSettlementProcessed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// DeadLetterReason records why the publisher gave up on an outbox row.
type DeadLetterReason string

const (
	// DeadLetterUnroutable means no topic is registered for the event type.
	DeadLetterUnroutable DeadLetterReason = "unroutable"
	// DeadLetterRejected means the broker or encoder refused the message outright.
	DeadLetterRejected DeadLetterReason = "rejected"
	// DeadLetterExhausted means transient failures used up every attempt.
	DeadLetterExhausted DeadLetterReason = "attempts_exhausted"
)

// IsValid reports whether the value is a known DeadLetterReason.
func (r DeadLetterReason) IsValid() bool {
	switch r {
	case DeadLetterUnroutable, DeadLetterRejected, DeadLetterExhausted:
		return true
	}
	return false
}
