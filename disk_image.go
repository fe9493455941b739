// disk_image.go - Geometry-parametrized floppy image: cylinders x sides x 16 sectors (C7).
//
// Grounded on diskimage.h's Disk/DiskImage class: cylinder/side caps, per-track seek, and
// the same format-then-reindex lifecycle, adapted to own its Track slice directly (the
// header-note in disk_sector.go explains why pointer-chasing is dropped in favor of plain
// indices).

package main

import "fmt"

const (
	maxCylinders = 86
)

// DiskImage is the in-memory representation of a floppy: a cylinders x sides grid of
// Tracks (spec §3.4).
type DiskImage struct {
	Cylinders byte
	Sides     byte
	Tracks    []Track
	Loaded    bool
	FilePath  string
}

// NewDiskImage allocates an empty image with the given geometry, formatting every track
// with the default 16-sector, 256-byte layout (spec §4.7). cylinders must be in
// 1..maxCylinders and sides must be 1 or 2; any other value returns an error.
func NewDiskImage(cylinders, sides byte) (*DiskImage, error) {
	if cylinders == 0 || cylinders > maxCylinders {
		return nil, fmt.Errorf("disk image: cylinders must be in 1..%d, got %d", maxCylinders, cylinders)
	}
	if sides != 1 && sides != 2 {
		return nil, fmt.Errorf("disk image: sides must be 1 or 2, got %d", sides)
	}
	img := &DiskImage{Cylinders: cylinders, Sides: sides}
	img.Tracks = make([]Track, int(cylinders)*int(sides))
	for cyl := byte(0); cyl < cylinders; cyl++ {
		for side := byte(0); side < sides; side++ {
			t := img.trackAt(cyl, side)
			t.FormatTrack(cyl, side)
		}
	}
	return img, nil
}

// trackIndex maps (cylinder, side) to a flat Tracks slot, side-major within cylinder
// (matching the loader's physical-order sector copy in spec §4.11).
func (d *DiskImage) trackIndex(cylinder, side byte) int {
	return int(cylinder)*int(d.Sides) + int(side)
}

func (d *DiskImage) trackAt(cylinder, side byte) *Track {
	return &d.Tracks[d.trackIndex(cylinder, side)]
}

// GetTrack returns the track at a flat index, or nil if out of range (spec §4.7).
func (d *DiskImage) GetTrack(index int) *Track {
	if index < 0 || index >= len(d.Tracks) {
		return nil
	}
	return &d.Tracks[index]
}

// GetTrackFor returns the track at (cylinder, side), or nil if out of range.
func (d *DiskImage) GetTrackFor(cylinder, side byte) *Track {
	if cylinder >= d.Cylinders || side >= d.Sides {
		return nil
	}
	return d.trackAt(cylinder, side)
}

// TrackCount returns cylinders*sides, the invariant spec §8 property 7's quantifier ranges
// over.
func (d *DiskImage) TrackCount() int {
	return len(d.Tracks)
}
