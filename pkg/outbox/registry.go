package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   Envelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	settlementTopic := cfg.SettlementTopic
	if settlementTopic == "" {
		settlementTopic = cfg.DomainTopic
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	domain := cfg.DomainTopic

	for _, desc := range []EventDescriptor{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Topic: domain, PayloadFactory: func() any { return &payloads.OrderCreatedEvent{} }},
		{EventType: enums.EventOrderStateChanged, AggregateType: enums.AggregateOrder, Topic: domain, PayloadFactory: func() any { return &payloads.OrderStateChangedEvent{} }},
		{EventType: enums.EventOrderExpired, AggregateType: enums.AggregateOrder, Topic: domain, PayloadFactory: func() any { return &payloads.OrderExpiredEvent{} }},
		{EventType: enums.EventOrderRefundRequired, AggregateType: enums.AggregateOrder, Topic: domain, PayloadFactory: func() any { return &payloads.OrderRefundRequiredEvent{} }},
		{EventType: enums.EventOrderPaymentRecorded, AggregateType: enums.AggregateOrder, Topic: domain, PayloadFactory: func() any { return &payloads.OrderPaymentRecordedEvent{} }},
		{EventType: enums.EventOrderDeductionApplied, AggregateType: enums.AggregateOrder, Topic: settlementTopic, PayloadFactory: func() any { return &payloads.OrderDeductionAppliedEvent{} }},
		{EventType: enums.EventIssueReported, AggregateType: enums.AggregateIssue, Topic: domain, PayloadFactory: func() any { return &payloads.IssueEvent{} }},
		{EventType: enums.EventIssueResolved, AggregateType: enums.AggregateIssue, Topic: domain, PayloadFactory: func() any { return &payloads.IssueEvent{} }},
		{EventType: enums.EventDisputeOpened, AggregateType: enums.AggregateDispute, Topic: domain, PayloadFactory: func() any { return &payloads.DisputeEvent{} }},
		{EventType: enums.EventDisputeAssigned, AggregateType: enums.AggregateDispute, Topic: domain, PayloadFactory: func() any { return &payloads.DisputeEvent{} }},
		{EventType: enums.EventDisputeEscalated, AggregateType: enums.AggregateDispute, Topic: domain, PayloadFactory: func() any { return &payloads.DisputeEvent{} }},
		{EventType: enums.EventDisputeResolved, AggregateType: enums.AggregateDispute, Topic: domain, PayloadFactory: func() any { return &payloads.DisputeEvent{} }},
		{EventType: enums.EventSettlementCreated, AggregateType: enums.AggregateSettlement, Topic: settlementTopic, PayloadFactory: func() any { return &payloads.SettlementEvent{} }},
		{EventType: enums.EventSettlementProcessed, AggregateType: enums.AggregateSettlement, Topic: settlementTopic, PayloadFactory: func() any { return &payloads.SettlementEvent{} }},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope Envelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
