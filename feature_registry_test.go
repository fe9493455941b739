package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFeatureRegistryDefaultsAndAlias(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	if r.IsEnabled(FeatureOpcodeProfiler) != r.IsEnabled(featureAliasOpProfiler) {
		t.Fatalf("id and alias must resolve to the same feature state")
	}
	if got, want := r.GetMode(featureAliasOpProfiler), "default"; got != want {
		t.Fatalf("GetMode(alias) = %q, want %q", got, want)
	}
	if got, want := r.GetMode(FeatureOpcodeProfiler), "default"; got != want {
		t.Fatalf("GetMode(id) = %q, want %q", got, want)
	}
	if r.IsEnabled(FeatureOpcodeProfiler) {
		t.Fatalf("opcode profiler should start disabled")
	}
}

func TestFeatureRegistrySetUnregistered(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	if r.Set("nosuchfeature", true) {
		t.Fatalf("Set on unregistered id should return false")
	}
	if r.SetMode("nosuchfeature", "on") {
		t.Fatalf("SetMode on unregistered id should return false")
	}
}

func TestFeatureRegistrySetModeRejectsDisallowed(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	if r.SetMode(FeatureOpcodeProfiler, "turbo") {
		t.Fatalf("SetMode should reject a mode outside AllowedModes")
	}
	if got := r.GetMode(FeatureOpcodeProfiler); got != "default" {
		t.Fatalf("GetMode after rejected SetMode = %q, want unchanged %q", got, "default")
	}

	if !r.SetMode(FeatureOpcodeProfiler, "on") {
		t.Fatalf("SetMode should accept a mode in AllowedModes")
	}
	if got := r.GetMode(FeatureOpcodeProfiler); got != "on" {
		t.Fatalf("GetMode after SetMode = %q, want %q", got, "on")
	}
}

func TestFeatureRegistrySetNotifiesOnChange(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	var calls []string
	r.OnChange(func(id string, enabled bool, mode string) {
		calls = append(calls, id)
	})

	if !r.Set(featureAliasOpProfiler, true) {
		t.Fatalf("Set should succeed for a registered alias")
	}
	if len(calls) != 1 || calls[0] != FeatureOpcodeProfiler {
		t.Fatalf("onChange calls = %v, want one call for %q", calls, FeatureOpcodeProfiler)
	}

	// Setting to the same value again is a no-op and must not notify again.
	if !r.Set(featureAliasOpProfiler, true) {
		t.Fatalf("Set should still succeed on a redundant call")
	}
	if len(calls) != 1 {
		t.Fatalf("onChange fired on a no-op Set: %v", calls)
	}
}

func TestFeatureRegistryPersistenceRoundTrip(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	r.Set(FeatureOpcodeProfiler, true)
	r.SetMode(FeatureOpcodeProfiler, "on")
	r.Set(FeatureRecording, true)

	path := filepath.Join(t.TempDir(), "features.ini")
	if !r.SaveTo(path) {
		t.Fatalf("SaveTo failed")
	}
	if r.isDirty() {
		t.Fatalf("registry still dirty after SaveTo")
	}

	loaded := NewFeatureRegistry()
	loaded.RegisterDefaults()
	loaded.LoadFrom(path)

	if !loaded.IsEnabled(FeatureOpcodeProfiler) {
		t.Fatalf("loaded registry: opcode profiler should be enabled")
	}
	if got := loaded.GetMode(FeatureOpcodeProfiler); got != "on" {
		t.Fatalf("loaded registry: opcode profiler mode = %q, want %q", got, "on")
	}
	if !loaded.IsEnabled(FeatureRecording) {
		t.Fatalf("loaded registry: recording should be enabled")
	}
	if loaded.IsEnabled(FeatureCallTrace) {
		t.Fatalf("loaded registry: call trace should remain disabled")
	}
}

func TestFeatureRegistryLoadFromMissingFileIsNotError(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()
	r.Set(FeatureOpcodeProfiler, true)

	r.LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.ini"))

	if !r.IsEnabled(FeatureOpcodeProfiler) {
		t.Fatalf("LoadFrom a missing file must leave existing state untouched")
	}
}

func TestFeatureRegistryLoadFromIgnoresUnknownSections(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	path := filepath.Join(t.TempDir(), "features.ini")
	writeFile(t, path, "[nosuchfeature]\nstate = on\nmode = weird\n")

	r.LoadFrom(path)

	if r.IsEnabled("nosuchfeature") {
		t.Fatalf("unknown section must not create a feature")
	}
}

func TestFeatureRegistryAutoPersist(t *testing.T) {
	r := NewFeatureRegistry()
	r.RegisterDefaults()

	path := filepath.Join(t.TempDir(), "features.ini")
	r.AutoPersist(path)

	r.Set(FeatureOpcodeProfiler, true)

	reloaded := NewFeatureRegistry()
	reloaded.RegisterDefaults()
	reloaded.LoadFrom(path)
	if !reloaded.IsEnabled(FeatureOpcodeProfiler) {
		t.Fatalf("AutoPersist should have saved the change to %s", path)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writeFile(%s): %v", path, err)
	}
}
