// emulator.go - Top-level wiring: Clock -> Memory -> FeatureRegistry -> FDDs -> FDC ->
// Z80 runner -> profiler/recording/shared memory -> shell/monitor, assembled for main.go.
// The FDC is built before the Z80 runner because the runner's port bus takes it.

package main

import (
	"fmt"
	"os"
)

// z80ClockHz is the classic 48K/128K ZX Spectrum CPU clock.
const z80ClockHz = 3_500_000

// z80TStatesPerFrame is t-states per 50Hz PAL frame (3,500,000 / 50).
const z80TStatesPerFrame = 70_000

// driveCount is the number of Beta128-addressable FDD units (spec §4.9/§4.10).
const driveCount = 4

// Emulator owns every collaborator named in the module map and wires them together in
// the order listed at the top of this file.
type Emulator struct {
	Clock    *Clock
	Memory   *MemoryView
	Features *FeatureRegistry
	Runner   *CPUZ80Runner
	Notify   *NotificationBus
	FDDs     [driveCount]*FDD
	FDC      *WD1793
	Profiler *Profiler
	Recorder *RecordingHook
	SharedMem *SharedMemoryToggle
	Shell    *Shell
	Monitor  *MachineMonitor

	featuresPath string
}

// NewEmulator constructs every collaborator and wires their cross-references, but does
// not yet load a program or disk image.
func NewEmulator(emulatorID, featuresPath string) *Emulator {
	clk := NewClock(z80ClockHz, z80TStatesPerFrame)

	mem := NewMemoryView()

	features := NewFeatureRegistry()
	features.RegisterDefaults()
	features.LoadFrom(featuresPath)

	notify := NewNotificationBus(32)

	var fdds [driveCount]*FDD
	for i := range fdds {
		fdds[i] = NewFDD(emulatorID, byte(i), z80ClockHz, notify)
	}
	fdc := NewWD1793(clk, notify, fdds)

	runner := NewCPUZ80Runner(mem, fdc, 0, 0)
	runner.CPU().SetClock(clk)

	profiler := NewProfiler()
	runner.CPU().AttachProfiler(profiler.Log)
	runner.CPU().SetProfilerEnabled(features.IsEnabled(FeatureOpcodeProfiler))
	features.OnChange(func(id string, enabled bool, _ string) {
		if id == FeatureOpcodeProfiler {
			runner.CPU().SetProfilerEnabled(enabled)
		}
	})

	recorder := NewRecordingHook(nil)
	sharedMem := NewSharedMemoryToggle(mem, fmt.Sprintf("%s_%d", emulatorID, os.Getpid()))

	shell := NewShell(os.Stdout, features, profiler, fdds)

	monitor := NewMachineMonitor()
	monitor.RegisterCPU("Z80", NewDebugZ80(runner.CPU(), runner))
	monitor.StartBreakpointListener()

	return &Emulator{
		Clock:        clk,
		Memory:       mem,
		Features:     features,
		Runner:       runner,
		Notify:       notify,
		FDDs:         fdds,
		FDC:          fdc,
		Profiler:     profiler,
		Recorder:     recorder,
		SharedMem:    sharedMem,
		Shell:        shell,
		Monitor:      monitor,
		featuresPath: featuresPath,
	}
}

// LoadDisk loads a TR-DOS disk image file into drive 0 (spec §4.11).
func (e *Emulator) LoadDisk(path string, pattern InterleavePattern) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emulator: cannot read disk image %s: %w", path, err)
	}
	img, err := LoadTRDImage(data, pattern)
	if err != nil {
		return fmt.Errorf("emulator: cannot parse TRD image %s: %w", path, err)
	}
	img.FilePath = path
	e.FDDs[0].InsertDisk(img)
	return nil
}

// LoadProgram loads a raw Z80 binary into memory for standalone CPU testing (bypassing
// the WD1793/TR-DOS loader path).
func (e *Emulator) LoadProgram(path string) error {
	return e.Runner.LoadProgram(path)
}

// Start enables the shared-memory export if the feature is on, then begins CPU
// execution on a background goroutine.
func (e *Emulator) Start() error {
	if e.Features.IsEnabled(FeatureSharedMemory) {
		if err := e.SharedMem.Enable(); err != nil {
			return fmt.Errorf("emulator: shared memory enable failed: %w", err)
		}
	}
	e.Runner.StartExecution()
	return nil
}

// Stop halts CPU execution, persists feature state, and releases shared memory.
func (e *Emulator) Stop() {
	e.Runner.Stop()
	if e.SharedMem.IsEnabled() {
		e.SharedMem.Disable()
	}
	if e.featuresPath != "" {
		e.Features.SaveTo(e.featuresPath)
	}
	e.Notify.Close()
}
