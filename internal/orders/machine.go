package orders

import (
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

// TransitionDetails is attached to INVALID_TRANSITION errors so callers can
// show the order's current status.
type TransitionDetails struct {
	CurrentStatus enums.OrderStatus `json:"current_status"`
	Event         enums.OrderEvent  `json:"event"`
}

// Next is the order transition function. It is total over every
// (status, event) pair: illegal pairs return INVALID_TRANSITION.
func Next(status enums.OrderStatus, event enums.OrderEvent) (enums.OrderStatus, error) {
	if target, ok := next(status, event); ok {
		return target, nil
	}
	return status, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot "+humanEvent(event)+" while "+string(status)).
		WithDetails(TransitionDetails{CurrentStatus: status, Event: event})
}

func next(status enums.OrderStatus, event enums.OrderEvent) (enums.OrderStatus, bool) {
	if !status.IsValid() || status.IsTerminal() {
		return status, false
	}

	switch event {
	case enums.OrderEventAccept:
		if status == enums.OrderStatusPending {
			return enums.OrderStatusConfirmed, true
		}
	case enums.OrderEventReject, enums.OrderEventExpire:
		if status == enums.OrderStatusPending {
			return enums.OrderStatusRejected, true
		}
	case enums.OrderEventStartProcessing:
		if status == enums.OrderStatusConfirmed {
			return enums.OrderStatusProcessing, true
		}
	case enums.OrderEventMarkReady:
		if status == enums.OrderStatusConfirmed || status == enums.OrderStatusProcessing {
			return enums.OrderStatusReady, true
		}
	case enums.OrderEventDispatch:
		if status != enums.OrderStatusDispatched && status != enums.OrderStatusDelivered {
			return enums.OrderStatusDispatched, true
		}
	case enums.OrderEventDeliver:
		if status == enums.OrderStatusDispatched {
			return enums.OrderStatusDelivered, true
		}
	case enums.OrderEventComplete:
		if status == enums.OrderStatusDelivered {
			return enums.OrderStatusCompleted, true
		}
	case enums.OrderEventCancel:
		return enums.OrderStatusCancelled, true
	}
	return status, false
}

func humanEvent(event enums.OrderEvent) string {
	switch event {
	case enums.OrderEventStartProcessing:
		return "start processing"
	case enums.OrderEventMarkReady:
		return "be marked ready"
	case enums.OrderEventDispatch:
		return "be dispatched"
	case enums.OrderEventDeliver:
		return "be delivered"
	case enums.OrderEventComplete:
		return "be completed"
	case enums.OrderEventCancel:
		return "be cancelled"
	case enums.OrderEventExpire:
		return "expire"
	default:
		return string(event)
	}
}
