package main

import "testing"

func TestProfilerLogRequiresCapturing(t *testing.T) {
	p := NewProfiler()
	p.Log(0x8000, z80ProfPrefixNone, 0x3E, 0, 0, 1, 100)
	if got := p.GetTotal(); got != 0 {
		t.Fatalf("Log before Start should be a no-op, GetTotal() = %d", got)
	}

	p.Start()
	if !p.IsCapturing() {
		t.Fatalf("Start should enter the Capturing state")
	}
	p.Log(0x8000, z80ProfPrefixNone, 0x3E, 0, 0, 1, 100)
	if got := p.GetTotal(); got != 1 {
		t.Fatalf("GetTotal() after one Log = %d, want 1", got)
	}
	if got := p.GetCount(z80ProfPrefixNone, 0x3E); got != 1 {
		t.Fatalf("GetCount(none, 0x3E) = %d, want 1", got)
	}
}

func TestProfilerPauseResumeStop(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixNone, 0x00, 0, 0, 0, 0)

	p.Pause()
	p.Log(0, z80ProfPrefixNone, 0x00, 0, 0, 0, 0)
	if got := p.GetTotal(); got != 1 {
		t.Fatalf("Log while Paused should be a no-op, GetTotal() = %d", got)
	}

	p.Resume()
	p.Log(0, z80ProfPrefixNone, 0x00, 0, 0, 0, 0)
	if got := p.GetTotal(); got != 2 {
		t.Fatalf("Log after Resume should count, GetTotal() = %d, want 2", got)
	}

	p.Stop()
	p.Log(0, z80ProfPrefixNone, 0x00, 0, 0, 0, 0)
	if got := p.GetTotal(); got != 2 {
		t.Fatalf("Log after Stop should be a no-op, GetTotal() = %d, want 2", got)
	}

	// Resume from Stopped is a no-op per spec.
	p.Resume()
	if p.IsCapturing() {
		t.Fatalf("Resume from Stopped must not re-enter Capturing")
	}
}

func TestProfilerClearResetsCountersButKeepsState(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixNone, 0x00, 0, 0, 0, 0)

	p.Clear()
	if got := p.GetTotal(); got != 0 {
		t.Fatalf("Clear should zero the total, got %d", got)
	}
	if !p.IsCapturing() {
		t.Fatalf("Clear must not change session state")
	}
}

func TestProfilerPrefixGroupsAreIndependent(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixNone, 0xCB, 0, 0, 0, 0)
	p.Log(0, z80ProfPrefixCB, 0xCB, 0, 0, 0, 0)

	if got := p.GetCount(z80ProfPrefixNone, 0xCB); got != 1 {
		t.Fatalf("GetCount(none, 0xCB) = %d, want 1", got)
	}
	if got := p.GetCount(z80ProfPrefixCB, 0xCB); got != 1 {
		t.Fatalf("GetCount(CB, 0xCB) = %d, want 1", got)
	}
	if got := p.GetTotal(); got != 2 {
		t.Fatalf("GetTotal() = %d, want 2", got)
	}
}

func TestProfilerUnrecognizedPrefixFallsBackToNone(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, 0xBEEF, 0x10, 0, 0, 0, 0)

	if got := p.GetCount(z80ProfPrefixNone, 0x10); got != 1 {
		t.Fatalf("unrecognized prefix should fold into the none group, GetCount = %d", got)
	}
}

func TestProfilerGetTopOpcodesOrdersByCountDescending(t *testing.T) {
	p := NewProfiler()
	p.Start()
	for i := 0; i < 3; i++ {
		p.Log(0, z80ProfPrefixNone, 0x01, 0, 0, 0, 0)
	}
	p.Log(0, z80ProfPrefixNone, 0x02, 0, 0, 0, 0)

	top := p.GetTopOpcodes(5)
	if len(top) != 2 {
		t.Fatalf("GetTopOpcodes(5) returned %d entries, want 2 non-zero", len(top))
	}
	if top[0].Opcode != 0x01 || top[0].Count != 3 {
		t.Fatalf("top[0] = %+v, want opcode 0x01 count 3", top[0])
	}
	if top[1].Opcode != 0x02 || top[1].Count != 1 {
		t.Fatalf("top[1] = %+v, want opcode 0x02 count 1", top[1])
	}
}

func TestProfilerGetTopOpcodesNonPositiveN(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixNone, 0x01, 0, 0, 0, 0)
	if got := p.GetTopOpcodes(0); got != nil {
		t.Fatalf("GetTopOpcodes(0) = %v, want nil", got)
	}
}

func TestProfilerGetRecentNewestFirst(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0x1000, z80ProfPrefixNone, 0x01, 0, 0, 0, 1)
	p.Log(0x2000, z80ProfPrefixNone, 0x02, 0, 0, 0, 2)
	p.Log(0x3000, z80ProfPrefixNone, 0x03, 0, 0, 0, 3)

	recent := p.GetRecent(2)
	if len(recent) != 2 {
		t.Fatalf("GetRecent(2) returned %d entries, want 2", len(recent))
	}
	if recent[0].PC != 0x3000 || recent[1].PC != 0x2000 {
		t.Fatalf("GetRecent order = %04X, %04X, want 3000, 2000", recent[0].PC, recent[1].PC)
	}
}

func TestProfilerStatus(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixNone, 0x01, 0, 0, 0, 0)

	s := p.Status()
	if !s.Capturing {
		t.Fatalf("Status().Capturing = false, want true")
	}
	if s.Total != 1 {
		t.Fatalf("Status().Total = %d, want 1", s.Total)
	}
	if s.TraceSize != 1 {
		t.Fatalf("Status().TraceSize = %d, want 1", s.TraceSize)
	}
	if s.TraceCapacity != DefaultTraceCapacity {
		t.Fatalf("Status().TraceCapacity = %d, want %d", s.TraceCapacity, DefaultTraceCapacity)
	}
}

func TestProfilerByPrefixCoversAll256Opcodes(t *testing.T) {
	p := NewProfiler()
	p.Start()
	p.Log(0, z80ProfPrefixED, 0x44, 0, 0, 0, 0)

	entries := p.ByPrefix(z80ProfPrefixED)
	if len(entries) != 256 {
		t.Fatalf("ByPrefix returned %d entries, want 256", len(entries))
	}
	if entries[0x44].Count != 1 {
		t.Fatalf("ByPrefix[0x44].Count = %d, want 1", entries[0x44].Count)
	}
	if entries[0x00].Count != 0 {
		t.Fatalf("ByPrefix[0x00].Count = %d, want 0", entries[0x00].Count)
	}
}
