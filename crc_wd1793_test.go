package main

import "testing"

func TestCRCWD1793MatchesStreamAccumulator(t *testing.T) {
	data := []byte{0xA1, 0xA1, 0xA1, 0xFE, 0x00, 0x01, 0x02, 0xF5}

	want := crcWD1793(data)

	var s crcWD1793Stream
	s = newCRCWD1793Stream()
	for _, b := range data {
		s.add(b)
	}
	hi, lo := s.bytes()
	got := uint16(hi)<<8 | uint16(lo)

	if got != want {
		t.Fatalf("stream accumulator = %04X, want %04X (from crcWD1793)", got, want)
	}
}

func TestCRCWD1793DiffersOnCorruption(t *testing.T) {
	good := []byte{0xFE, 0x00, 0x01, 0x02, 0xF5}
	bad := append([]byte(nil), good...)
	bad[2] ^= 0xFF

	if crcWD1793(good) == crcWD1793(bad) {
		t.Fatalf("corrupting a byte should change the CRC")
	}
}

func TestCRCWD1793EmptyInput(t *testing.T) {
	// An empty buffer never touches the table; the result is just the byte-swapped
	// initial value.
	iv := uint16(crcWD1793Init)
	want := iv<<8 | iv>>8
	if got := crcWD1793(nil); got != want {
		t.Fatalf("crcWD1793(nil) = %04X, want %04X", got, want)
	}
}

func TestCRCWD1793StreamResetMatchesFresh(t *testing.T) {
	s := newCRCWD1793Stream()
	s.add(0x11)
	s.add(0x22)
	s.reset()
	s.add(0x33)

	fresh := newCRCWD1793Stream()
	fresh.add(0x33)

	if s.crc != fresh.crc {
		t.Fatalf("reset() left stale state: %04X, want %04X", s.crc, fresh.crc)
	}
}

func TestCRCUDIAccumulatesAcrossCalls(t *testing.T) {
	var accum int32
	crcUDI(&accum, []byte{0x01, 0x02})
	oneShot := accum

	accum = 0
	crcUDI(&accum, []byte{0x01})
	crcUDI(&accum, []byte{0x02})

	if accum != oneShot {
		t.Fatalf("split-call accumulation = %#x, want %#x (single call)", accum, oneShot)
	}
}

func TestCRCTD0KnownVector(t *testing.T) {
	// CRC-16/ARC of "123456789" is the standard check value 0xBB3D.
	got := crcTD0([]byte("123456789"))
	if got != 0xBB3D {
		t.Fatalf("crcTD0(\"123456789\") = %04X, want BB3D", got)
	}
}
