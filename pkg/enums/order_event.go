package enums

import "fmt"

// OrderEvent names a lifecycle trigger applied to an order.
type OrderEvent string

const (
	OrderEventAccept          OrderEvent = "accept"
	OrderEventReject          OrderEvent = "reject"
	OrderEventStartProcessing OrderEvent = "start_processing"
	OrderEventMarkReady       OrderEvent = "mark_ready"
	OrderEventDispatch        OrderEvent = "dispatch"
	OrderEventDeliver         OrderEvent = "deliver"
	OrderEventComplete        OrderEvent = "complete"
	OrderEventCancel          OrderEvent = "cancel"
	OrderEventExpire          OrderEvent = "expire"
)

var validOrderEvents = []OrderEvent{
	OrderEventAccept,
	OrderEventReject,
	OrderEventStartProcessing,
	OrderEventMarkReady,
	OrderEventDispatch,
	OrderEventDeliver,
	OrderEventComplete,
	OrderEventCancel,
	OrderEventExpire,
}

// String implements fmt.Stringer.
func (o OrderEvent) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderEvent.
func (o OrderEvent) IsValid() bool {
	for _, candidate := range validOrderEvents {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderEvent converts raw input into an OrderEvent.
func ParseOrderEvent(value string) (OrderEvent, error) {
	for _, candidate := range validOrderEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event %q", value)
}

// OrderEvents returns every known event.
func OrderEvents() []OrderEvent {
	out := make([]OrderEvent, len(validOrderEvents))
	copy(out, validOrderEvents)
	return out
}
