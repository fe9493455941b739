package main

import "testing"

func TestClockAdvanceMonotonic(t *testing.T) {
	c := NewClock(3_500_000, 70_000)
	c.Advance(100)
	c.Advance(250)
	if got := c.Now(); got != 350 {
		t.Fatalf("Now() = %d, want 350", got)
	}
}

func TestClockFrameRollover(t *testing.T) {
	c := NewClock(3_500_000, 100)

	var fired []uint32
	c.OnFrameEnd(func(frame uint32) {
		fired = append(fired, frame)
	})

	c.Advance(99)
	if c.Frame() != 0 {
		t.Fatalf("Frame() = %d, want 0 before rollover", c.Frame())
	}
	if len(fired) != 0 {
		t.Fatalf("OnFrameEnd fired early: %v", fired)
	}

	c.Advance(1) // crosses the 100 T-state boundary
	if c.Frame() != 1 {
		t.Fatalf("Frame() = %d, want 1 after rollover", c.Frame())
	}
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("OnFrameEnd = %v, want [1]", fired)
	}

	c.Advance(250) // crosses 3 more boundaries (101..350 spans frames 2,3,4)
	if c.Frame() != 4 {
		t.Fatalf("Frame() = %d, want 4", c.Frame())
	}
	if len(fired) != 4 {
		t.Fatalf("OnFrameEnd fired %d times, want 4: %v", len(fired), fired)
	}
}

func TestClockFrameTState(t *testing.T) {
	c := NewClock(3_500_000, 70_000)
	c.Advance(70_005)
	if got := c.FrameTState(); got != 5 {
		t.Fatalf("FrameTState() = %d, want 5", got)
	}
}

func TestClockMillisecondConversions(t *testing.T) {
	c := NewClock(3_500_000, 70_000)
	if got := c.TStatesPerMillisecond(); got != 3500 {
		t.Fatalf("TStatesPerMillisecond() = %d, want 3500", got)
	}
	if got := c.MillisecondsToTStates(2); got != 7000 {
		t.Fatalf("MillisecondsToTStates(2) = %d, want 7000", got)
	}
	if got := c.TStatesToMilliseconds(7000); got != 2 {
		t.Fatalf("TStatesToMilliseconds(7000) = %v, want 2", got)
	}
}

func TestClockReset(t *testing.T) {
	c := NewClock(3_500_000, 70_000)
	c.Advance(12345)
	c.Reset()
	if c.Now() != 0 || c.Frame() != 0 {
		t.Fatalf("Reset() left Now()=%d Frame()=%d, want both 0", c.Now(), c.Frame())
	}
}
