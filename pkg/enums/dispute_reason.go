package enums

import "fmt"

// DisputeReason categorises why a dispute was raised.
type DisputeReason string

const (
	DisputeReasonDamagedItems   DisputeReason = "damaged_items"
	DisputeReasonQualityIssue   DisputeReason = "quality_issue"
	DisputeReasonLateDelivery   DisputeReason = "late_delivery"
	DisputeReasonMissingItems   DisputeReason = "missing_items"
	DisputeReasonIncompleteWork DisputeReason = "incomplete_work"
	DisputeReasonWrongPricing   DisputeReason = "wrong_pricing"
	DisputeReasonVendorNoShow   DisputeReason = "vendor_no_show"
	DisputeReasonOther          DisputeReason = "other"
)

var validDisputeReasons = []DisputeReason{
	DisputeReasonDamagedItems,
	DisputeReasonQualityIssue,
	DisputeReasonLateDelivery,
	DisputeReasonMissingItems,
	DisputeReasonIncompleteWork,
	DisputeReasonWrongPricing,
	DisputeReasonVendorNoShow,
	DisputeReasonOther,
}

// String implements fmt.Stringer.
func (d DisputeReason) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeReason.
func (d DisputeReason) IsValid() bool {
	for _, candidate := range validDisputeReasons {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeReason converts raw input into a DisputeReason.
func ParseDisputeReason(value string) (DisputeReason, error) {
	for _, candidate := range validDisputeReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute reason %q", value)
}
