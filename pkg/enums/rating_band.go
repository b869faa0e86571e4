package enums

import "fmt"

// RatingBand buckets an overall vendor performance score.
type RatingBand string

const (
	RatingBandExcellent RatingBand = "excellent"
	RatingBandGood      RatingBand = "good"
	RatingBandFair      RatingBand = "fair"
	RatingBandPoor      RatingBand = "poor"
)

var validRatingBands = []RatingBand{
	RatingBandExcellent,
	RatingBandGood,
	RatingBandFair,
	RatingBandPoor,
}

// String implements fmt.Stringer.
func (r RatingBand) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RatingBand.
func (r RatingBand) IsValid() bool {
	for _, candidate := range validRatingBands {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRatingBand converts raw input into a RatingBand.
func ParseRatingBand(value string) (RatingBand, error) {
	for _, candidate := range validRatingBands {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rating band %q", value)
}
