// profiler.go - Z80 opcode execution profiler: counters + session control (C4).
//
// Two-tier architecture grounded on
// original_source/core/src/emulator/cpu/opcode_profiler.h/.cpp:
//   - Tier 1: a 1792-slot atomic counter table, one slot per (prefix group, opcode).
//   - Tier 2: a fixed-size trace ring (profiler_ring.go) for recent-execution forensics.
//
// Concurrency model (spec §5): the emulator thread is the sole writer. Counter updates are
// relaxed atomic adds and take no lock. Trace-ring pushes take the ring's mutex, which
// readers (get_recent/save_to/status) also hold while copying entries out, so a read can
// delay a push.

package main

import (
	"sort"
	"sync/atomic"
)

// CounterTableSize is the number of (prefix, opcode) execution-count slots: 256 opcodes
// times 7 prefix groups (none, CB, DD, ED, FD, DDCB, FDCB).
const CounterTableSize = 256 * 7

// DefaultTraceCapacity is the number of recent-execution trace entries retained.
const DefaultTraceCapacity = 10_000

// ProfilerSessionState is the profiler's capture state machine (spec §3.3).
type ProfilerSessionState int32

const (
	ProfilerStopped ProfilerSessionState = iota
	ProfilerCapturing
	ProfilerPaused
)

func (s ProfilerSessionState) String() string {
	switch s {
	case ProfilerCapturing:
		return "capturing"
	case ProfilerPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// prefixGroup maps a wire prefix code to its 0..6 counter-table group offset. Any
// unrecognized prefix value is treated as non-prefixed (group 0), per spec §4.4.
func prefixGroup(prefix uint16) int {
	switch prefix {
	case z80ProfPrefixCB:
		return 1
	case z80ProfPrefixDD:
		return 2
	case z80ProfPrefixED:
		return 3
	case z80ProfPrefixFD:
		return 4
	case z80ProfPrefixDDCB:
		return 5
	case z80ProfPrefixFDCB:
		return 6
	default:
		return 0
	}
}

var prefixGroupWire = [7]uint16{
	z80ProfPrefixNone, z80ProfPrefixCB, z80ProfPrefixDD, z80ProfPrefixED,
	z80ProfPrefixFD, z80ProfPrefixDDCB, z80ProfPrefixFDCB,
}

func counterIndex(prefix uint16, opcode byte) int {
	return prefixGroup(prefix)*256 + int(opcode)
}

// OpcodeCounter reports the execution count for one (prefix, opcode) pair.
type OpcodeCounter struct {
	Prefix  uint16
	Opcode  byte
	Count   uint64
	Mnemonic string
}

// ProfilerStatus is the profiler's current snapshot summary (spec §4.4 status()).
type ProfilerStatus struct {
	Capturing     bool
	Total         uint64
	TraceSize     int
	TraceCapacity int
}

// Profiler is the opcode execution profiler (C4).
type Profiler struct {
	state atomic.Int32 // ProfilerSessionState

	counters [CounterTableSize]atomic.Uint64
	total    atomic.Uint64

	ring *profilerRing

	mnemonic func(prefix uint16, opcode byte) string // optional disassembler hook
}

// NewProfiler builds a profiler with the default trace capacity.
func NewProfiler() *Profiler {
	return &Profiler{ring: newProfilerRing(DefaultTraceCapacity)}
}

// SetMnemonicResolver wires an optional disassembler lookup used only when rendering
// top-opcode reports; without one, GetTopOpcodes leaves Mnemonic empty.
func (p *Profiler) SetMnemonicResolver(fn func(prefix uint16, opcode byte) string) {
	p.mnemonic = fn
}

// Start clears all counters and trace data and enters the Capturing state (spec §4.4).
func (p *Profiler) Start() {
	p.clearData()
	p.state.Store(int32(ProfilerCapturing))
}

// Pause retains data but stops accepting new events.
func (p *Profiler) Pause() {
	p.state.Store(int32(ProfilerPaused))
}

// Resume re-enters Capturing from Paused. A no-op from any other state.
func (p *Profiler) Resume() {
	if ProfilerSessionState(p.state.Load()) == ProfilerPaused {
		p.state.Store(int32(ProfilerCapturing))
	}
}

// Stop retains data; future Log calls become no-ops. Idempotent.
func (p *Profiler) Stop() {
	p.state.Store(int32(ProfilerStopped))
}

// Clear zeroes counters and trace without changing the session state.
func (p *Profiler) Clear() {
	p.clearData()
}

func (p *Profiler) clearData() {
	for i := range p.counters {
		p.counters[i].Store(0)
	}
	p.total.Store(0)
	p.ring.clear()
}

// IsCapturing reports whether new Log calls will be accepted.
func (p *Profiler) IsCapturing() bool {
	return ProfilerSessionState(p.state.Load()) == ProfilerCapturing
}

// SessionState returns the profiler's current state.
func (p *Profiler) SessionState() ProfilerSessionState {
	return ProfilerSessionState(p.state.Load())
}

// Log records one opcode execution (spec §4.4). A no-op unless Capturing. This is the
// hot-path entry point called from the Z80 core's Step(); the counter add uses relaxed
// atomic semantics (Go's atomic ops are always at least that strong) and never tears a
// 64-bit word.
func (p *Profiler) Log(pc, prefix uint16, opcode, flags, a byte, frame, tState uint32) {
	if !p.IsCapturing() {
		return
	}
	idx := counterIndex(prefix, opcode)
	p.counters[idx].Add(1)
	p.total.Add(1)
	p.ring.push(profilerTraceEntry{
		PC: pc, Prefix: prefix, Opcode: opcode, Flags: flags, A: a, Frame: frame, TState: tState,
	})
}

// GetCount returns the execution count for (prefix, opcode); unrecognized prefixes map to
// the non-prefixed group (spec §4.4).
func (p *Profiler) GetCount(prefix uint16, opcode byte) uint64 {
	return p.counters[counterIndex(prefix, opcode)].Load()
}

// GetTotal returns the sum of all counters, maintained incrementally so readers never need
// to sum 1792 atomics themselves.
func (p *Profiler) GetTotal() uint64 {
	return p.total.Load()
}

// GetTopOpcodes returns up to n non-zero entries sorted by count descending, stable on
// ties (spec §4.4 get_top). n<=0 returns an empty slice.
func (p *Profiler) GetTopOpcodes(n int) []OpcodeCounter {
	if n <= 0 {
		return nil
	}
	all := p.allCounters()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Count > all[j].Count })
	nonZero := all[:0:0]
	for _, c := range all {
		if c.Count > 0 {
			nonZero = append(nonZero, c)
		}
	}
	if len(nonZero) > n {
		nonZero = nonZero[:n]
	}
	return nonZero
}

// ByPrefix returns every (prefix, opcode) counter for one prefix group, in opcode order.
// Not named explicitly in spec.md's operation table but implied by the counter layout
// (§3.3). No shell command calls it; `profiler opcode counters` prints GetTopOpcodes.
func (p *Profiler) ByPrefix(prefix uint16) []OpcodeCounter {
	group := prefixGroup(prefix)
	wire := prefixGroupWire[group]
	out := make([]OpcodeCounter, 0, 256)
	for op := 0; op < 256; op++ {
		count := p.counters[group*256+op].Load()
		out = append(out, p.counterFor(wire, byte(op), count))
	}
	return out
}

func (p *Profiler) allCounters() []OpcodeCounter {
	out := make([]OpcodeCounter, 0, CounterTableSize)
	for group := 0; group < 7; group++ {
		wire := prefixGroupWire[group]
		for op := 0; op < 256; op++ {
			count := p.counters[group*256+op].Load()
			if count == 0 {
				continue
			}
			out = append(out, p.counterFor(wire, byte(op), count))
		}
	}
	return out
}

func (p *Profiler) counterFor(prefix uint16, opcode byte, count uint64) OpcodeCounter {
	c := OpcodeCounter{Prefix: prefix, Opcode: opcode, Count: count}
	if p.mnemonic != nil {
		c.Mnemonic = p.mnemonic(prefix, opcode)
	}
	return c
}

// GetRecent returns up to min(n, trace_size) entries, newest first (spec §4.4).
func (p *Profiler) GetRecent(n int) []OpcodeTraceEntry {
	if n <= 0 {
		return nil
	}
	return p.ring.recent(n)
}

// Status returns the profiler's current snapshot summary.
func (p *Profiler) Status() ProfilerStatus {
	return ProfilerStatus{
		Capturing:     p.IsCapturing(),
		Total:         p.total.Load(),
		TraceSize:     p.ring.size(),
		TraceCapacity: p.ring.capacity(),
	}
}
