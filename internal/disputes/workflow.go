package disputes

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

var (
	highPriorityAmount   = decimal.NewFromInt(50000)
	mediumPriorityAmount = decimal.NewFromInt(20000)
)

// PriorityFor classifies a new dispute. The amount thresholds are checked
// before the reason so a large claim always lands in the higher band.
func PriorityFor(amount decimal.Decimal, reason enums.DisputeReason) enums.DisputePriority {
	switch {
	case amount.GreaterThan(highPriorityAmount),
		reason == enums.DisputeReasonVendorNoShow,
		reason == enums.DisputeReasonIncompleteWork:
		return enums.DisputePriorityHigh
	case amount.GreaterThan(mediumPriorityAmount),
		reason == enums.DisputeReasonDamagedItems,
		reason == enums.DisputeReasonQualityIssue:
		return enums.DisputePriorityMedium
	default:
		return enums.DisputePriorityLow
	}
}

// Timeline action labels.
const (
	ActionCreated       = "created"
	ActionAssigned      = "assigned"
	ActionEvidenceAdded = "evidence_added"
	ActionEscalated     = "escalated"
	ActionResolved      = "resolved"
)

// StatusDetails accompanies INVALID_TRANSITION errors.
type StatusDetails struct {
	CurrentStatus enums.DisputeStatus `json:"current_status"`
	Action        string              `json:"action"`
}

func invalidTransition(current enums.DisputeStatus, action, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, message).
		WithDetails(StatusDetails{CurrentStatus: current, Action: action})
}

// assignTarget moves a fresh or reviewed dispute under review. An escalated
// dispute keeps its status when reassigned.
func assignTarget(current enums.DisputeStatus) (enums.DisputeStatus, error) {
	switch current {
	case enums.DisputeStatusOpen, enums.DisputeStatusUnderReview:
		return enums.DisputeStatusUnderReview, nil
	case enums.DisputeStatusEscalated:
		return enums.DisputeStatusEscalated, nil
	default:
		return "", invalidTransition(current, ActionAssigned, "dispute is closed")
	}
}

func escalateAllowed(current enums.DisputeStatus) error {
	if current.IsTerminal() {
		return invalidTransition(current, ActionEscalated, "dispute is closed")
	}
	if current == enums.DisputeStatusEscalated {
		return invalidTransition(current, ActionEscalated, "dispute is already escalated")
	}
	return nil
}

func resolveAllowed(current, outcome enums.DisputeStatus) error {
	if !outcome.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeValidation, "resolution outcome must be a closing status")
	}
	if current.IsTerminal() {
		return invalidTransition(current, ActionResolved, "dispute is closed")
	}
	return nil
}
