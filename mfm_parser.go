// mfm_parser.go - Raw MFM track scanner: sync detection, IDAM/DAM decode (C8).
//
// Grounded on original_source/core/src/emulator/io/fdc/mfm_parser.h's MFM namespace
// constants and SectorParseResult/TrackParseResult shape, adapted to Go idioms (slices and
// structs in place of fixed C arrays and std::string accumulation).

package main

import "fmt"

const (
	mfmSyncByte = 0xA1
	mfmIDAM     = 0xFE
	mfmDAM      = 0xFB
	mfmDDAM     = 0xF8
	mfmIndexAM  = 0xFC
	mfmGapByte  = 0x4E

	mfmIDAMSize = 7 // FE + C + H + S + N + CRC(2)

	// damSearchMin/Max bound the window (in bytes after the IDAM) in which a sector's DAM
	// must appear (spec §4.8 step 3).
	damSearchMin = 27
	damSearchMax = 67
)

// mfmTrackParse is the raw scan's output: the decoded sectors plus the per-byte sync/bad
// bitmaps carried forward onto the owning Track (spec §3.4).
type mfmTrackParse struct {
	sectors []RawSectorBytes
	sync    []bool
	bad     []bool
}

// findSyncTriplets returns the offsets of the mark byte following each A1 A1 A1 sync
// triplet in raw (spec §4.8 step 1).
func findSyncTriplets(raw []byte) []int {
	var marks []int
	for i := 0; i+3 < len(raw); i++ {
		if raw[i] == mfmSyncByte && raw[i+1] == mfmSyncByte && raw[i+2] == mfmSyncByte {
			marks = append(marks, i+3)
		}
	}
	return marks
}

// parseMFMTrack scans a 6,250-byte raw track, decoding every IDAM/DAM pair it finds, and
// returns both the reconstructed sector set and a triaged validation report (spec §4.8).
func parseMFMTrack(raw []byte) (*mfmTrackParse, *ValidationReport) {
	report := newValidationReport()
	parse := &mfmTrackParse{
		sync: make([]bool, len(raw)),
		bad:  make([]bool, len(raw)),
	}

	found := make(map[byte]RawSectorBytes)
	seenAt := make(map[byte]int)

	marks := findSyncTriplets(raw)
	for _, markOff := range marks {
		if markOff >= len(raw) {
			continue
		}
		parse.sync[markOff-3] = true
		mark := raw[markOff]

		switch mark {
		case mfmIDAM:
			if markOff+mfmIDAMSize > len(raw) {
				continue
			}
			idamBytes := raw[markOff : markOff+5]
			crc := uint16(raw[markOff+5])<<8 | uint16(raw[markOff+6])
			calc := crcWD1793(idamBytes)

			sec := RawSectorBytes{
				Cylinder:      idamBytes[1],
				Head:          idamBytes[2],
				Sector:        idamBytes[3],
				SectorLenCode: idamBytes[4],
				IDCRC:         crc,
				valid:         true,
			}

			if crc != calc {
				report.add(sevError, "IDAM_CRC_MISMATCH",
					fmt.Sprintf("IDAM CRC mismatch for sector %d", sec.Sector),
					"stored CRC does not match a fresh crc_wd1793 computation over FE C H S N",
					"re-format or re-image this track",
					int(sec.Sector), markOff)
			}

			damOffset, dam, ok := scanForDAM(raw, markOff)
			if !ok {
				report.add(sevError, "DATA_BLOCK_MISSING",
					fmt.Sprintf("no data address mark found for sector %d", sec.Sector),
					"no DAM/DDAM byte located within the IDAM+27..IDAM+67 search window",
					"track may be partially formatted or damaged",
					int(sec.Sector), markOff)
			} else {
				size := sectorLenToSize(sec.SectorLenCode)
				dataStart := damOffset + 1
				dataEnd := dataStart + size
				if dataEnd+2 > len(raw) {
					report.add(sevCritical, "DATA_BLOCK_MISSING",
						fmt.Sprintf("data block for sector %d runs past end of track", sec.Sector),
						"computed data block extends beyond the 6,250-byte raw track",
						"track is truncated or corrupt",
						int(sec.Sector), damOffset)
				} else {
					sec.Deleted = dam == mfmDDAM
					sec.Data = append([]byte(nil), raw[dataStart:dataEnd]...)
					dataCRC := uint16(raw[dataEnd])<<8 | uint16(raw[dataEnd+1])
					sec.DataCRC = dataCRC

					calcBuf := make([]byte, 0, 1+size)
					calcBuf = append(calcBuf, dam)
					calcBuf = append(calcBuf, sec.Data...)
					if dataCRC != crcWD1793(calcBuf) {
						report.add(sevError, "DATA_CRC_MISMATCH",
							fmt.Sprintf("data CRC mismatch for sector %d", sec.Sector),
							"stored data CRC does not match a fresh computation over DAM+payload",
							"sector data is corrupt or was written without recomputing CRC",
							int(sec.Sector), dataEnd)
					}
				}
			}

			if prev, dup := found[sec.Sector]; dup {
				report.add(sevWarning, "DUPLICATE_SECTOR",
					fmt.Sprintf("duplicate sector number %d", sec.Sector),
					"more than one IDAM on this track advertises the same sector number",
					"last physical occurrence wins for logical indexing",
					int(sec.Sector), markOff)
				_ = prev
			}
			found[sec.Sector] = sec
			seenAt[sec.Sector] = markOff

		case mfmDAM, mfmDDAM, mfmIndexAM:
			// A DAM/IAM encountered without first matching an IDAM above is out of band;
			// the per-IDAM scan above already consumes the DAM that belongs to it via
			// scanForDAM, so stray marks here are simply not double-counted.
		}
	}

	sectors := make([]RawSectorBytes, 0, len(found))
	for _, s := range found {
		sectors = append(sectors, s)
	}
	parse.sectors = sectors

	validCount := 0
	for n := byte(1); n <= maxSectorsPerTrack; n++ {
		s, ok := found[n]
		if !ok {
			report.add(sevError, "SECTOR_NOT_FOUND",
				fmt.Sprintf("sector %d not found on track", n),
				"no IDAM on this track advertises this sector number",
				"track is unformatted or partially formatted",
				int(n), -1)
			continue
		}
		if s.valid && s.IDCRC == crcWD1793(s.idamBytes()) && s.Data != nil && s.dataValid() {
			validCount++
		}
	}
	report.sectorsFound = len(found)
	report.validSectors = validCount

	return parse, report
}

// scanForDAM looks for a DAM/DDAM byte following a sync triplet within the window
// [from+damSearchMin, from+damSearchMax) (spec §4.8 step 3).
func scanForDAM(raw []byte, from int) (offset int, mark byte, ok bool) {
	lo := from + damSearchMin
	hi := from + damSearchMax
	if hi > len(raw) {
		hi = len(raw)
	}
	for i := lo; i+3 < hi; i++ {
		if raw[i] == mfmSyncByte && raw[i+1] == mfmSyncByte && raw[i+2] == mfmSyncByte {
			m := raw[i+3]
			if m == mfmDAM || m == mfmDDAM {
				return i + 3, m, true
			}
		}
	}
	return 0, 0, false
}

// encodeMFMTrack renders a set of physical sectors into a 6,250-byte raw MFM view with gap
// filler between records, plus matching sync/bad bitmaps (the encode-side counterpart of
// parseMFMTrack, needed whenever a Track's sector data changes, spec §3.4's raw-view
// invariant).
func encodeMFMTrack(sectors []RawSectorBytes) (raw []byte, sync []bool, bad []bool) {
	raw = make([]byte, rawTrackSize)
	for i := range raw {
		raw[i] = mfmGapByte
	}
	sync = make([]bool, rawTrackSize)
	bad = make([]bool, rawTrackSize)

	pos := 0
	emit := func(b byte) {
		if pos < len(raw) {
			raw[pos] = b
			pos++
		}
	}
	emitSync := func() {
		for i := 0; i < 3; i++ {
			markPos := pos
			emit(mfmSyncByte)
			if markPos < len(sync) {
				sync[markPos] = true
			}
		}
	}
	emitGap := func(n int) {
		for i := 0; i < n; i++ {
			emit(mfmGapByte)
		}
	}

	for _, s := range sectors {
		if !s.valid {
			continue
		}
		emitGap(12)
		emitSync()
		emit(mfmIDAM)
		emit(s.Cylinder)
		emit(s.Head)
		emit(s.Sector)
		emit(s.SectorLenCode)
		emit(byte(s.IDCRC >> 8))
		emit(byte(s.IDCRC))

		emitGap(22)
		emitSync()
		emit(s.damMark())
		for _, b := range s.Data {
			emit(b)
		}
		emit(byte(s.DataCRC >> 8))
		emit(byte(s.DataCRC))
	}

	return raw, sync, bad
}
