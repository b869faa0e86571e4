package enums

import "fmt"

// DisputeStatus is the state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen                  DisputeStatus = "open"
	DisputeStatusUnderReview           DisputeStatus = "under_review"
	DisputeStatusEscalated             DisputeStatus = "escalated"
	DisputeStatusResolvedRefund        DisputeStatus = "resolved_refund"
	DisputeStatusResolvedReplacement   DisputeStatus = "resolved_replacement"
	DisputeStatusResolvedPartialRefund DisputeStatus = "resolved_partial_refund"
	DisputeStatusRejected              DisputeStatus = "rejected"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusEscalated,
	DisputeStatusResolvedRefund,
	DisputeStatusResolvedReplacement,
	DisputeStatusResolvedPartialRefund,
	DisputeStatusRejected,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// IsTerminal reports whether the dispute has been resolved or rejected.
func (d DisputeStatus) IsTerminal() bool {
	switch d {
	case DisputeStatusResolvedRefund, DisputeStatusResolvedReplacement, DisputeStatusResolvedPartialRefund, DisputeStatusRejected:
		return true
	default:
		return false
	}
}

// CarriesRefund reports whether the outcome pays money back to the buyer.
func (d DisputeStatus) CarriesRefund() bool {
	return d == DisputeStatusResolvedRefund || d == DisputeStatusResolvedPartialRefund
}
