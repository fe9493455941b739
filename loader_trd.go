// loader_trd.go - TRD byte-stream <-> DiskImage materialization with TR-DOS interleave
// (C11).
//
// Grounded on original_source/core/src/emulator/io/fdc/loader_trd.h/.cpp's image-building
// steps (allocate, format each track with an interleave pattern, copy sector payloads in
// physical order, stamp the volume header into sector 9 of track 0) and spec §4.11.

package main

import "fmt"

// InterleavePattern selects the physical sector order a loaded track's logical sectors are
// written into (spec §4.11).
type InterleavePattern int

const (
	InterleaveSequential InterleavePattern = iota
	InterleaveTRDOS504T
	InterleaveCompat
)

// interleaveOrder returns, for each physical slot i (0-based), the sector number that slot
// carries on a freshly formatted track.
func interleaveOrder(pattern InterleavePattern) [maxSectorsPerTrack]byte {
	switch pattern {
	case InterleaveTRDOS504T:
		// 1,9,2,10,3,11,...,8,16 (spec §4.11).
		var order [maxSectorsPerTrack]byte
		for i := 0; i < 8; i++ {
			order[2*i] = byte(i + 1)
			order[2*i+1] = byte(i + 9)
		}
		return order
	case InterleaveCompat:
		// A third, looser compatibility pattern: each half in reverse order (8..1, 16..9).
		var order [maxSectorsPerTrack]byte
		for i := 0; i < 8; i++ {
			order[i] = byte(8 - i)
			order[8+i] = byte(16 - i)
		}
		return order
	default:
		var order [maxSectorsPerTrack]byte
		for i := 0; i < maxSectorsPerTrack; i++ {
			order[i] = byte(i + 1)
		}
		return order
	}
}

const (
	trdSectorSize       = 256
	trdSectorsPerTrack  = 16
	trdBytesPerCylinder = trdSectorSize * trdSectorsPerTrack * 2 // 2 sides
)

// trdVolumeHeaderOffset is the byte offset, within sector 9 of track 0, of the 8-byte
// "TRDOS" signature block that stampVolumeHeader writes after the header fields.
const trdVolumeHeaderOffset = 0xE5

// LoadTRDImage parses a raw TRD byte stream into a DiskImage, formatting every track with
// the given interleave pattern and copying each 256-byte payload into the sector whose
// number matches its position in the stream (spec §4.11).
func LoadTRDImage(data []byte, pattern InterleavePattern) (*DiskImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("loader_trd: empty image")
	}
	maxBytes := maxCylinders * trdBytesPerCylinder
	if len(data) > maxBytes {
		return nil, fmt.Errorf("loader_trd: image too large (%d bytes, max %d)", len(data), maxBytes)
	}

	cylinders := byte((len(data) + trdBytesPerCylinder - 1) / trdBytesPerCylinder)
	if cylinders == 0 {
		cylinders = 1
	}

	img, err := NewDiskImage(cylinders, 2)
	if err != nil {
		return nil, fmt.Errorf("loader_trd: %w", err)
	}

	order := interleaveOrder(pattern)
	pos := 0
	for cyl := byte(0); cyl < cylinders; cyl++ {
		for side := byte(0); side < 2; side++ {
			trk := img.trackAt(cyl, side)
			for phys := 0; phys < trdSectorsPerTrack; phys++ {
				trk.Sectors[phys].Sector = order[phys]
				trk.Sectors[phys].recomputeIDCRC()
			}
			trk.ReindexSectors()
			for logical := 0; logical < trdSectorsPerTrack; logical++ {
				chunk := make([]byte, trdSectorSize)
				n := copy(chunk, data[pos:])
				_ = n
				pos += trdSectorSize
				if pos > len(data) {
					pos = len(data)
				}
				idx := trk.physicalIndexFor(byte(logical + 1))
				if idx >= 0 {
					trk.Sectors[idx].Data = chunk
					trk.Sectors[idx].recomputeDataCRC()
				}
			}
			trk.rebuildRaw()
		}
	}

	stampVolumeHeader(img)
	img.Loaded = true
	return img, nil
}

// stampVolumeHeader writes the TR-DOS volume header into sector 9 of track 0, side 0
// (spec §4.11).
func stampVolumeHeader(img *DiskImage) {
	trk := img.GetTrackFor(0, 0)
	if trk == nil {
		return
	}
	data := trk.GetDataForSector(8) // logical sector 9, zero-based index 8
	if data == nil {
		return
	}
	totalSectors := int(img.Cylinders)*int(img.Sides)*trdSectorsPerTrack - trdSectorsPerTrack

	header := make([]byte, trdSectorSize)
	header[0x00] = 0x00 // first free sector
	header[0x01] = 0x01 // first free track
	header[0x02] = 0x10 // DS_80 disk type signature
	header[0x03] = 0x00 // number of files, filled in by TR-DOS itself
	freeSectors := totalSectors
	header[0x04] = byte(freeSectors)
	header[0x05] = byte(freeSectors >> 8)
	header[0x06] = 0x10 // TR-DOS signature byte
	for i := 0; i < 9; i++ {
		header[0x07+i] = 0x00
	}
	copy(header[0x10:0x18], []byte("        ")) // 8-byte blank label
	header[0x18] = 0 // number of deleted files
	copy(header[trdVolumeHeaderOffset:], "TRDOS\x00\x00\x00")

	copy(data, header)
	trk.WriteSector(9, data)
}

// WriteTRDImage dumps every track's every sector as 256-byte chunks back to a byte stream,
// in physical-track order (spec §4.11).
func WriteTRDImage(img *DiskImage) []byte {
	out := make([]byte, 0, int(img.Cylinders)*trdBytesPerCylinder)
	for cyl := byte(0); cyl < img.Cylinders; cyl++ {
		for side := byte(0); side < img.Sides; side++ {
			trk := img.GetTrackFor(cyl, side)
			if trk == nil {
				out = append(out, make([]byte, trdBytesPerCylinder/int(img.Sides))...)
				continue
			}
			for logical := 0; logical < trdSectorsPerTrack; logical++ {
				data := trk.GetDataForSector(logical)
				if data == nil {
					out = append(out, make([]byte, trdSectorSize)...)
					continue
				}
				padded := make([]byte, trdSectorSize)
				copy(padded, data)
				out = append(out, padded...)
			}
		}
	}
	return out
}
