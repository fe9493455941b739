// sharedmem.go - Shared memory region backing the four address-space banks (C14).
//
// Grounded on spec §4.14/§6.6 directly (original_source has no equivalent: the original's
// shared-memory export is entangled with its GUI process's IPC layer, which this spec's
// scope excludes). Instead of POSIX shm_open, the region is a named file under the OS temp
// directory, openable by name by an external process and removed on Close. Enabling the
// feature writes a snapshot of memory into that file and rebinds the view to a private heap
// copy read back from it; later memory writes are not reflected in the file, and nothing is
// memory-mapped.

package main

import (
	"fmt"
	"os"
)

// SharedMemoryRegion is a named file under the OS temp directory, sized to the memory view's
// four banks, that external readers can open by name (spec §4.14, §6.6). Access is plain
// file I/O; nothing is memory-mapped.
type SharedMemoryRegion struct {
	name string
	file *os.File
	size int
}

// sharedMemoryName builds a process-unique, OS-legal name (spec §6.6).
func sharedMemoryName(pid int, randomHex string) string {
	return fmt.Sprintf("emu_shm_%d_%s", pid, randomHex)
}

// OpenSharedMemoryRegion creates (or truncates) a backing file of the given size under the
// OS temp directory, named per sharedMemoryName.
func OpenSharedMemoryRegion(name string, size int) (*SharedMemoryRegion, error) {
	path := sharedMemoryPath(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("sharedmem: cannot create %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("sharedmem: cannot size %s: %w", path, err)
	}
	return &SharedMemoryRegion{name: name, file: f, size: size}, nil
}

func sharedMemoryPath(name string) string {
	return os.TempDir() + string(os.PathSeparator) + name
}

// Name returns the region's external-facing name (spec §6.6).
func (r *SharedMemoryRegion) Name() string { return r.name }

// WriteAt writes data into the backing file at the given offset.
func (r *SharedMemoryRegion) WriteAt(data []byte, offset int) error {
	_, err := r.file.WriteAt(data, int64(offset))
	return err
}

// ReadAt reads len(buf) bytes from the backing file at the given offset.
func (r *SharedMemoryRegion) ReadAt(buf []byte, offset int) error {
	_, err := r.file.ReadAt(buf, int64(offset))
	return err
}

// Close closes and removes the backing file (spec §6.6: "the emulator cleans up
// the object on shutdown").
func (r *SharedMemoryRegion) Close() error {
	path := sharedMemoryPath(r.name)
	err := r.file.Close()
	os.Remove(path)
	return err
}

// SharedMemoryToggle wires the "sharedmemory" feature (C2) to a MemoryView (C3): turning
// the feature on writes a snapshot of the view's current content into a newly opened named
// region and rebinds the view onto a private heap copy read back from it, so memory writes
// made afterwards are not reflected in the region; turning it off copies content into a new
// private heap buffer and removes the region (spec §4.14). Relative offsets of RAM/cache/misc/ROM bases are preserved either way,
// since Rebind always swaps the whole contiguous buffer as one unit.
type SharedMemoryToggle struct {
	mv     *MemoryView
	region *SharedMemoryRegion
	name   string
}

// NewSharedMemoryToggle wires the toggle to a memory view and a region-naming function
// (caller supplies the pid/random-hex so this stays deterministic-testable).
func NewSharedMemoryToggle(mv *MemoryView, name string) *SharedMemoryToggle {
	return &SharedMemoryToggle{mv: mv, name: name}
}

// Enable writes a snapshot of the memory view into a newly opened region and rebinds the view
// to a heap copy read back from it, preserving content (spec §8 property 9). Later writes to
// the view are not reflected in the region.
func (t *SharedMemoryToggle) Enable() error {
	if t.region != nil {
		return nil
	}
	region, err := OpenSharedMemoryRegion(t.name, t.mv.Size())
	if err != nil {
		return err
	}
	if err := region.WriteAt(t.mv.Raw(), 0); err != nil {
		region.Close()
		return fmt.Errorf("sharedmem: initial copy failed: %w", err)
	}
	buf := make([]byte, t.mv.Size())
	if err := region.ReadAt(buf, 0); err != nil {
		region.Close()
		return fmt.Errorf("sharedmem: readback failed: %w", err)
	}
	t.mv.Rebind(buf)
	t.region = region
	return nil
}

// Disable copies the current content back into a private heap allocation and releases the
// shared-memory region (spec §4.14).
func (t *SharedMemoryToggle) Disable() error {
	if t.region == nil {
		return nil
	}
	priv := make([]byte, t.mv.Size())
	copy(priv, t.mv.Raw())
	t.mv.Rebind(priv)
	err := t.region.Close()
	t.region = nil
	return err
}

// IsEnabled reports whether the memory view is currently shared-memory-backed.
func (t *SharedMemoryToggle) IsEnabled() bool { return t.region != nil }

// RegionName returns the currently active region's external name, or "" if disabled.
func (t *SharedMemoryToggle) RegionName() string {
	if t.region == nil {
		return ""
	}
	return t.region.name
}
