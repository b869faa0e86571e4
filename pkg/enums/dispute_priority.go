package enums

import "fmt"

// DisputePriority orders disputes in the back-office queue.
type DisputePriority string

const (
	DisputePriorityLow      DisputePriority = "low"
	DisputePriorityMedium   DisputePriority = "medium"
	DisputePriorityHigh     DisputePriority = "high"
	DisputePriorityCritical DisputePriority = "critical"
)

var validDisputePrioritys = []DisputePriority{
	DisputePriorityLow,
	DisputePriorityMedium,
	DisputePriorityHigh,
	DisputePriorityCritical,
}

// String implements fmt.Stringer.
func (d DisputePriority) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputePriority.
func (d DisputePriority) IsValid() bool {
	for _, candidate := range validDisputePrioritys {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputePriority converts raw input into a DisputePriority.
func ParseDisputePriority(value string) (DisputePriority, error) {
	for _, candidate := range validDisputePrioritys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute priority %q", value)
}
