package main

import "testing"

func buildFormattedSectors(t *testing.T) []RawSectorBytes {
	t.Helper()
	sectors := make([]RawSectorBytes, maxSectorsPerTrack)
	for i := range sectors {
		sectors[i].formatDefault(0, 0, byte(i+1), defaultSectorSize)
		for j := range sectors[i].Data {
			sectors[i].Data[j] = byte(i*16 + j)
		}
		sectors[i].recomputeDataCRC()
	}
	return sectors
}

func TestMFMEncodeParseRoundTrip(t *testing.T) {
	sectors := buildFormattedSectors(t)
	raw, _, _ := encodeMFMTrack(sectors)

	if len(raw) != rawTrackSize {
		t.Fatalf("encodeMFMTrack produced %d bytes, want %d", len(raw), rawTrackSize)
	}

	parse, report := parseMFMTrack(raw)

	if got := len(parse.sectors); got != maxSectorsPerTrack {
		t.Fatalf("parsed %d sectors, want %d", got, maxSectorsPerTrack)
	}
	if !report.Pass() {
		t.Fatalf("expected a clean track to Pass(), issues: %+v", report.Issues)
	}
	if report.SectorsFound() != maxSectorsPerTrack {
		t.Fatalf("SectorsFound() = %d, want %d", report.SectorsFound(), maxSectorsPerTrack)
	}
	if report.ValidSectors() != maxSectorsPerTrack {
		t.Fatalf("ValidSectors() = %d, want %d", report.ValidSectors(), maxSectorsPerTrack)
	}

	byNum := make(map[byte]RawSectorBytes, len(parse.sectors))
	for _, s := range parse.sectors {
		byNum[s.Sector] = s
	}
	for i, want := range sectors {
		got, ok := byNum[want.Sector]
		if !ok {
			t.Fatalf("sector %d missing from parse", want.Sector)
		}
		if len(got.Data) != len(want.Data) {
			t.Fatalf("sector %d: data length = %d, want %d", want.Sector, len(got.Data), len(want.Data))
		}
		for j := range want.Data {
			if got.Data[j] != want.Data[j] {
				t.Fatalf("sector %d byte %d = %#x, want %#x (sector index %d)", want.Sector, j, got.Data[j], want.Data[j], i)
			}
		}
	}
}

func TestMFMParseDetectsIDAMCRCMismatch(t *testing.T) {
	sectors := buildFormattedSectors(t)
	raw, _, _ := encodeMFMTrack(sectors)

	// Corrupt the cylinder byte of the first sector's IDAM, after its three-byte sync
	// mark and FE byte, without touching the stored CRC.
	idamMarkOff := -1
	for _, off := range findSyncTriplets(raw) {
		if raw[off] == mfmIDAM {
			idamMarkOff = off
			break
		}
	}
	if idamMarkOff < 0 {
		t.Fatalf("no IDAM found in encoded track")
	}
	raw[idamMarkOff+1] ^= 0xFF // corrupt the cylinder field

	_, report := parseMFMTrack(raw)
	if report.Pass() {
		t.Fatalf("corrupted IDAM should fail validation")
	}
	found := false
	for _, iss := range report.Issues {
		if iss.Code == "IDAM_CRC_MISMATCH" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an IDAM_CRC_MISMATCH issue, got %+v", report.Issues)
	}
}

func TestMFMParseDetectsMissingSector(t *testing.T) {
	sectors := buildFormattedSectors(t)
	sectors[0].valid = false // sector 1 never gets written to the track
	raw, _, _ := encodeMFMTrack(sectors)

	_, report := parseMFMTrack(raw)
	if report.Pass() {
		t.Fatalf("a track missing a sector should fail validation")
	}
	if report.SectorsFound() != maxSectorsPerTrack-1 {
		t.Fatalf("SectorsFound() = %d, want %d", report.SectorsFound(), maxSectorsPerTrack-1)
	}

	found := false
	for _, iss := range report.Issues {
		if iss.Code == "SECTOR_NOT_FOUND" && iss.SectorNo == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SECTOR_NOT_FOUND issue for sector 1, got %+v", report.Issues)
	}
}

func TestMFMParseDetectsDeletedDataMark(t *testing.T) {
	sectors := buildFormattedSectors(t)
	sectors[0].Deleted = true
	sectors[0].recomputeDataCRC()
	raw, _, _ := encodeMFMTrack(sectors)

	parse, report := parseMFMTrack(raw)
	if !report.Pass() {
		t.Fatalf("a deleted-data-mark sector with a valid CRC should still Pass(): %+v", report.Issues)
	}

	var got *RawSectorBytes
	for i := range parse.sectors {
		if parse.sectors[i].Sector == sectors[0].Sector {
			got = &parse.sectors[i]
		}
	}
	if got == nil {
		t.Fatalf("sector %d missing from parse", sectors[0].Sector)
	}
	if !got.Deleted {
		t.Fatalf("parsed sector should carry Deleted=true for a DDAM-marked sector")
	}
}
