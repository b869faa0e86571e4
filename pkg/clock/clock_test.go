package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFake(start)
	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("unexpected time %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("expected reset to start")
	}
}

func TestFuncAdapter(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Fatalf("expected fixed time")
	}
	if Real().Now().Location() != time.UTC {
		t.Fatalf("real clock should report UTC")
	}
}
