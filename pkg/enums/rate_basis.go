package enums

import "fmt"

// RateBasis is the unit a labor rate is quoted in.
type RateBasis string

const (
	RateBasisHourly RateBasis = "hourly"
	RateBasisDaily  RateBasis = "daily"
)

var validRateBases = []RateBasis{
	RateBasisHourly,
	RateBasisDaily,
}

// String implements fmt.Stringer.
func (r RateBasis) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RateBasis.
func (r RateBasis) IsValid() bool {
	for _, candidate := range validRateBases {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRateBasis converts raw input into a RateBasis.
func ParseRateBasis(value string) (RateBasis, error) {
	for _, candidate := range validRateBases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rate basis %q", value)
}
