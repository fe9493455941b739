// clock.go - Shared T-state time base for the Z80 core and WD1793 FDC.

package main

import "sync/atomic"

// Nominal CPU frequency for the default ("Pentagon") timing model, in Hz.
const DefaultCPUFrequency = 3_500_000

// T-states per frame for the Pentagon timing model.
const DefaultTStatesPerFrame = 71_680

// Clock is the single monotonic T-state counter shared by every clocked component.
// Nothing else in the emulator measures wall time directly (spec §4.1): the Z80 core and
// the WD1793 FDC both take T-states from this clock.
type Clock struct {
	tStatesPerFrame uint32
	cpuFrequency    uint64

	tState       atomic.Uint64 // monotonic, never wraps in practice
	frameCounter atomic.Uint32

	onFrameEnd []func(frame uint32)
}

// NewClock builds a clock for the given CPU frequency (Hz) and frame length in T-states.
func NewClock(cpuFrequency uint64, tStatesPerFrame uint32) *Clock {
	return &Clock{cpuFrequency: cpuFrequency, tStatesPerFrame: tStatesPerFrame}
}

// NewDefaultClock builds a clock using the Pentagon timing model.
func NewDefaultClock() *Clock {
	return NewClock(DefaultCPUFrequency, DefaultTStatesPerFrame)
}

// Now returns the monotonic T-state counter.
func (c *Clock) Now() uint64 {
	return c.tState.Load()
}

// Frame returns the current frame counter (incremented on each frame rollover).
func (c *Clock) Frame() uint32 {
	return c.frameCounter.Load()
}

// FrameTState returns the T-state offset within the current frame.
func (c *Clock) FrameTState() uint32 {
	if c.tStatesPerFrame == 0 {
		return 0
	}
	return uint32(c.tState.Load() % uint64(c.tStatesPerFrame))
}

// FrameState returns (frame, frameTState) atomically enough for profiler logging: frame
// and T-state may be read from two separate loads, but since both are monotonically
// non-decreasing within a single-threaded emulation step this races only with readers,
// never with correctness of the trace entry itself.
func (c *Clock) FrameState() (frame, tState uint32) {
	return c.Frame(), c.FrameTState()
}

// OnFrameEnd registers a callback invoked once per frame rollover, in registration order.
func (c *Clock) OnFrameEnd(fn func(frame uint32)) {
	c.onFrameEnd = append(c.onFrameEnd, fn)
}

// Advance moves the clock forward by dt T-states, firing any frame-end observers for each
// frame boundary crossed.
func (c *Clock) Advance(dt uint64) {
	if dt == 0 || c.tStatesPerFrame == 0 {
		c.tState.Add(dt)
		return
	}
	before := c.tState.Load()
	after := before + dt
	c.tState.Store(after)

	framesBefore := before / uint64(c.tStatesPerFrame)
	framesAfter := after / uint64(c.tStatesPerFrame)
	for f := framesBefore; f < framesAfter; f++ {
		n := c.frameCounter.Add(1)
		for _, fn := range c.onFrameEnd {
			fn(n)
		}
	}
}

// TStatesPerMillisecond converts the clock's CPU frequency to a T-states/ms ratio.
func (c *Clock) TStatesPerMillisecond() uint64 {
	return c.cpuFrequency / 1000
}

// MillisecondsToTStates converts a millisecond duration to a T-state count at this
// clock's nominal frequency.
func (c *Clock) MillisecondsToTStates(ms float64) uint64 {
	return uint64(ms * float64(c.cpuFrequency) / 1000.0)
}

// TStatesToMilliseconds converts a T-state count back to milliseconds.
func (c *Clock) TStatesToMilliseconds(t uint64) float64 {
	if c.cpuFrequency == 0 {
		return 0
	}
	return float64(t) * 1000.0 / float64(c.cpuFrequency)
}

// Reset zeroes the T-state and frame counters. Used when the emulator is reset to a known
// state (e.g. on a cold restart).
func (c *Clock) Reset() {
	c.tState.Store(0)
	c.frameCounter.Store(0)
}
