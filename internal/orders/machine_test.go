package orders

import (
	"testing"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

func TestNextEnumeratesEveryPair(t *testing.T) {
	legal := map[enums.OrderStatus]map[enums.OrderEvent]enums.OrderStatus{
		enums.OrderStatusPending: {
			enums.OrderEventAccept:   enums.OrderStatusConfirmed,
			enums.OrderEventReject:   enums.OrderStatusRejected,
			enums.OrderEventExpire:   enums.OrderStatusRejected,
			enums.OrderEventDispatch: enums.OrderStatusDispatched,
			enums.OrderEventCancel:   enums.OrderStatusCancelled,
		},
		enums.OrderStatusConfirmed: {
			enums.OrderEventStartProcessing: enums.OrderStatusProcessing,
			enums.OrderEventMarkReady:       enums.OrderStatusReady,
			enums.OrderEventDispatch:        enums.OrderStatusDispatched,
			enums.OrderEventCancel:          enums.OrderStatusCancelled,
		},
		enums.OrderStatusProcessing: {
			enums.OrderEventMarkReady: enums.OrderStatusReady,
			enums.OrderEventDispatch:  enums.OrderStatusDispatched,
			enums.OrderEventCancel:    enums.OrderStatusCancelled,
		},
		enums.OrderStatusReady: {
			enums.OrderEventDispatch: enums.OrderStatusDispatched,
			enums.OrderEventCancel:   enums.OrderStatusCancelled,
		},
		enums.OrderStatusDispatched: {
			enums.OrderEventDeliver: enums.OrderStatusDelivered,
			enums.OrderEventCancel:  enums.OrderStatusCancelled,
		},
		enums.OrderStatusDelivered: {
			enums.OrderEventComplete: enums.OrderStatusCompleted,
			enums.OrderEventCancel:   enums.OrderStatusCancelled,
		},
	}

	for _, status := range enums.OrderStatuses() {
		for _, event := range enums.OrderEvents() {
			got, err := Next(status, event)
			want, ok := legal[status][event]
			if ok {
				if err != nil {
					t.Fatalf("Next(%s, %s) unexpected error: %v", status, event, err)
				}
				if got != want {
					t.Fatalf("Next(%s, %s) = %s, want %s", status, event, got, want)
				}
				continue
			}

			if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				t.Fatalf("Next(%s, %s) expected INVALID_TRANSITION, got %v", status, event, err)
			}
			if got != status {
				t.Fatalf("Next(%s, %s) should leave status unchanged, got %s", status, event, got)
			}
			details, ok := pkgerrors.As(err).Details().(TransitionDetails)
			if !ok || details.CurrentStatus != status || details.Event != event {
				t.Fatalf("Next(%s, %s) missing transition details: %#v", status, event, pkgerrors.As(err).Details())
			}
		}
	}
}

func TestNextRejectsUnknownStatus(t *testing.T) {
	if _, err := Next("archived", enums.OrderEventCancel); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for unknown status, got %v", err)
	}
}
