package settlements

import (
	"fmt"
	"time"
)

// Window is one settlement cycle. Orders completed at or before Cutoff are
// payable in the cycle.
type Window struct {
	Start  time.Time
	Cutoff time.Time
}

// CycleWindow returns the most recent cycle boundary at or before asOf,
// counting whole cycles of length from anchor.
func CycleWindow(asOf, anchor time.Time, length time.Duration) (Window, error) {
	if length <= 0 {
		return Window{}, fmt.Errorf("settlement cycle length must be positive, got %s", length)
	}
	elapsed := asOf.Sub(anchor)
	cycles := elapsed / length
	if elapsed < 0 && elapsed%length != 0 {
		cycles--
	}
	cutoff := anchor.Add(cycles * length).UTC()
	return Window{Start: cutoff.Add(-length), Cutoff: cutoff}, nil
}
