// feature_registry.go - Named, aliased, mode-bearing feature toggles (spec §4.2).

package main

import (
	"sync"
)

// FeatureInfo describes one togglable feature: its identity, current state, and the set
// of modes it accepts. Grounded on original_source's FeatureManager::FeatureInfo.
type FeatureInfo struct {
	ID           string
	Alias        string
	Description  string
	Enabled      bool
	Mode         string
	AllowedModes []string
	Category     string
}

func (f FeatureInfo) clone() FeatureInfo {
	out := f
	out.AllowedModes = append([]string(nil), f.AllowedModes...)
	return out
}

func (f FeatureInfo) modeAllowed(mode string) bool {
	if len(f.AllowedModes) == 0 {
		return true
	}
	for _, m := range f.AllowedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// FeatureRegistry is the mapping id -> FeatureInfo plus its alias -> id index (C2).
// Safe for concurrent use: the CLI, the emulator's init path, and the Z80/FDC/recording
// feature-cache refreshes may all touch it.
type FeatureRegistry struct {
	mu       sync.RWMutex
	features map[string]FeatureInfo
	aliases  map[string]string
	order    []string // registration order, for stable List() output
	dirty    bool

	// onChange is invoked after every Set/SetMode that changes a feature's state or mode
	// (a call that leaves both unchanged fires nothing), outside the lock, so
	// observers (the Z80 core's profiler cache, the FDC's sleep/wake path, the recording
	// hook) can refresh their cached booleans without the registry ever calling back into
	// them under lock.
	onChange []func(id string, enabled bool, mode string)
}

// NewFeatureRegistry builds an empty registry. Call RegisterDefaults to install the
// baseline feature set spec.md §4.2 requires.
func NewFeatureRegistry() *FeatureRegistry {
	return &FeatureRegistry{
		features: make(map[string]FeatureInfo),
		aliases:  make(map[string]string),
	}
}

// Feature ids, aliases, and categories (spec §4.2; original_source featuremanager.h).
const (
	FeatureDebugMode       = "debugmode"
	FeatureMemoryCounters  = "memorycounters"
	FeatureCallTrace       = "calltrace"
	FeatureOpcodeProfiler  = "opcodeprofiler"
	FeatureRecording       = "recording"
	FeatureSharedMemory    = "sharedmemory"
	featureAliasDebugMode  = "dbg"
	featureAliasMemCounter = "memtrack"
	featureAliasCallTrace  = "ct"
	featureAliasOpProfiler = "op"
	featureAliasRecording  = "rec"
	featureAliasSharedMem  = "shm"
	categoryDebug          = "debug"
	categoryAnalysis       = "analysis"
	categoryPerformance    = "performance"
)

// RegisterDefaults installs the emulator's baseline feature set.
func (r *FeatureRegistry) RegisterDefaults() {
	r.Clear()
	r.Register(FeatureInfo{
		ID: FeatureDebugMode, Alias: featureAliasDebugMode,
		Description: "Master debug mode; gates all debug features for performance",
		Mode:        "off", AllowedModes: []string{"off", "on", "fast"}, Category: categoryDebug,
	})
	r.Register(FeatureInfo{
		ID: FeatureMemoryCounters, Alias: featureAliasMemCounter,
		Description: "Collect memory access counters and statistics",
		Mode:        "default", AllowedModes: []string{"off", "on", "default"}, Category: categoryAnalysis,
	})
	r.Register(FeatureInfo{
		ID: FeatureCallTrace, Alias: featureAliasCallTrace,
		Description: "Collect call trace information for debugging",
		Mode:        "default", AllowedModes: []string{"off", "on", "minimal", "detailed"}, Category: categoryAnalysis,
	})
	r.Register(FeatureInfo{
		ID: FeatureOpcodeProfiler, Alias: featureAliasOpProfiler,
		Description: "Track Z80 opcode execution stats and trace for debugging and crash forensics",
		Mode:        "default", AllowedModes: []string{"off", "on", "default"}, Category: categoryPerformance,
	})
	r.Register(FeatureInfo{
		ID: FeatureRecording, Alias: featureAliasRecording,
		Description: "Enable the recording subsystem (video/audio capture hook)",
		Mode:        "default", AllowedModes: []string{"off", "on", "default"}, Category: categoryPerformance,
	})
	r.Register(FeatureInfo{
		ID: FeatureSharedMemory, Alias: featureAliasSharedMem,
		Description: "Export emulator memory via shared memory for external tool access",
		Mode:        "default", AllowedModes: []string{"off", "on", "default"}, Category: categoryPerformance,
	})
	r.mu.Lock()
	r.dirty = false
	r.mu.Unlock()
}

// Register adds or replaces a feature's metadata.
func (r *FeatureRegistry) Register(info FeatureInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.features[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	r.features[info.ID] = info.clone()
	if info.Alias != "" {
		r.aliases[info.Alias] = info.ID
	}
}

// Remove deletes a feature by id or alias.
func (r *FeatureRegistry) Remove(idOrAlias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.resolveLocked(idOrAlias)
	if !ok {
		return
	}
	delete(r.aliases, f.Alias)
	delete(r.features, f.ID)
	for i, id := range r.order {
		if id == f.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.dirty = true
}

// Clear removes every registered feature.
func (r *FeatureRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features = make(map[string]FeatureInfo)
	r.aliases = make(map[string]string)
	r.order = nil
	r.dirty = true
}

func (r *FeatureRegistry) resolveLocked(idOrAlias string) (FeatureInfo, bool) {
	if f, ok := r.features[idOrAlias]; ok {
		return f, true
	}
	if id, ok := r.aliases[idOrAlias]; ok {
		if f, ok := r.features[id]; ok {
			return f, true
		}
	}
	return FeatureInfo{}, false
}

// Set enables/disables a feature by id or alias. Returns false if the id/alias is
// unregistered (spec §9's resolved Open Question: setFeature returns bool, never void).
func (r *FeatureRegistry) Set(idOrAlias string, enabled bool) bool {
	r.mu.Lock()
	f, ok := r.resolveLocked(idOrAlias)
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := f.Enabled != enabled
	f.Enabled = enabled
	r.features[f.ID] = f
	if changed {
		r.dirty = true
	}
	r.mu.Unlock()
	if changed {
		r.notify(f.ID, f.Enabled, f.Mode)
	}
	return true
}

// SetMode sets a feature's mode by id or alias. Returns false if the id/alias is
// unregistered, or if mode is not in the feature's AllowedModes (spec §8 boundary case).
func (r *FeatureRegistry) SetMode(idOrAlias, mode string) bool {
	r.mu.Lock()
	f, ok := r.resolveLocked(idOrAlias)
	if !ok {
		r.mu.Unlock()
		return false
	}
	if !f.modeAllowed(mode) {
		r.mu.Unlock()
		return false
	}
	changed := f.Mode != mode
	f.Mode = mode
	r.features[f.ID] = f
	if changed {
		r.dirty = true
	}
	r.mu.Unlock()
	if changed {
		r.notify(f.ID, f.Enabled, f.Mode)
	}
	return true
}

func (r *FeatureRegistry) notify(id string, enabled bool, mode string) {
	for _, fn := range r.onChange {
		fn(id, enabled, mode)
	}
}

// OnChange registers a callback fired after every state/mode change takes effect.
func (r *FeatureRegistry) OnChange(fn func(id string, enabled bool, mode string)) {
	r.onChange = append(r.onChange, fn)
}

// GetMode returns a feature's current mode, or "" if unknown.
func (r *FeatureRegistry) GetMode(idOrAlias string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.resolveLocked(idOrAlias)
	if !ok {
		return ""
	}
	return f.Mode
}

// IsEnabled reports whether a feature is on, by id or alias.
func (r *FeatureRegistry) IsEnabled(idOrAlias string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.resolveLocked(idOrAlias)
	return ok && f.Enabled
}

// List returns every registered feature, in registration order.
func (r *FeatureRegistry) List() []FeatureInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FeatureInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.features[id].clone())
	}
	return out
}

func (r *FeatureRegistry) isDirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

func (r *FeatureRegistry) clearDirty() {
	r.mu.Lock()
	r.dirty = false
	r.mu.Unlock()
}

func (r *FeatureRegistry) snapshot() []FeatureInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FeatureInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.features[id].clone())
	}
	return out
}
