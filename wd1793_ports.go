// wd1793_ports.go - Port read/write side effects for the WD1793 + Beta128 (spec §4.10
// Ports table, §6.1).

package main

const (
	portWD1793Command = 0x1F
	portWD1793Track   = 0x3F
	portWD1793Sector  = 0x5F
	portWD1793Data    = 0x7F
	portBeta128       = 0xFF
)

// ReadPort dispatches a port read, applying side effects per spec §4.10's Ports/Reads
// table. Any port access wakes the FDC from sleep.
func (w *WD1793) ReadPort(port uint16) byte {
	w.wake()
	switch port {
	case portWD1793Command:
		v := w.statusWithBusy()
		w.intrqOut = false
		return v
	case portWD1793Track:
		return w.track
	case portWD1793Sector:
		return w.sector
	case portWD1793Data:
		v := w.data
		w.onDataRegisterRead()
		return v
	case portBeta128:
		return w.betaStatus()
	default:
		return 0xFF
	}
}

// WritePort dispatches a port write, applying side effects per spec §4.10's Ports/Writes
// table. Any port access wakes the FDC from sleep.
func (w *WD1793) WritePort(port uint16, val byte) {
	w.wake()
	switch port {
	case portWD1793Command:
		w.intrqOut = false
		w.ExecuteCommand(val)
	case portWD1793Track:
		w.track = val
	case portWD1793Sector:
		w.sector = val
	case portWD1793Data:
		w.data = val
		w.onDataRegisterWrite()
	case portBeta128:
		w.writeBeta128(val)
	}
}

// statusWithBusy returns the port 1F status byte. Bit 1 is multiplexed by the WD1793
// between the Index pulse (Type I / Force Interrupt status format) and DRQ (Type II/III
// format); w.status itself never carries that bit, so it is computed fresh on every read.
func (w *WD1793) statusWithBusy() byte {
	v := w.status &^ byte(wdsIndex)
	if w.statusIsType1 {
		if w.indexLevel {
			v |= wdsIndex
		}
	} else if w.drqOut {
		v |= wdsDRQ
	}
	return v
}

// betaStatus packs DRQ/INTRQ into the Beta128 status read (port FF), alongside the
// control bits currently latched (spec §4.10).
func (w *WD1793) betaStatus() byte {
	v := w.betaControl & 0x3F
	if w.drqOut {
		v |= betaDRQ
	}
	if w.intrqOut {
		v |= betaINTRQ
	}
	return v
}

// writeBeta128 updates drive select (bits 0..1), side (bit 4, inverted), reset (bit 2,
// active low), density (bit 6) per spec §4.10.
func (w *WD1793) writeBeta128(val byte) {
	w.betaControl = val
	w.drive = val & 0x03
	side := val&0x10 == 0 // inverted
	fdd := w.selectedFDD()
	if fdd != nil {
		fdd.SetSide(side)
	}
	if val&0x04 == 0 { // active low reset
		w.Reset()
	}
}

// onDataRegisterRead serves a host read of the data register during Read Sector/Track,
// advancing the transfer and clearing DRQ (spec §4.10's port 7F read side effect).
func (w *WD1793) onDataRegisterRead() {
	w.drqOut = false
	w.lostDataAccumT = 0
	switch w.state {
	case wdReadSector:
		if w.sectorDataPos < len(w.sectorData) {
			w.sectorDataPos++
		}
		if w.sectorDataPos < len(w.sectorData) {
			w.data = w.sectorData[w.sectorDataPos]
			w.drqOut = true
		}
	case wdReadTrack:
		if w.rawTrackPos < len(w.rawTrack) {
			w.rawTrackPos++
		}
		if w.rawTrackPos < rawTrackSize && w.rawTrackPos < len(w.rawTrack) {
			w.data = w.rawTrack[w.rawTrackPos]
			w.drqOut = true
		}
	}
}

// onDataRegisterWrite serves a host write of the data register during Write
// Sector/Track, advancing the transfer. DRQ stays set in WriteByte's streaming substates
// per spec §4.10's "(unless in WriteByte)" clause on port 7F.
func (w *WD1793) onDataRegisterWrite() {
	w.lostDataAccumT = 0
	switch w.state {
	case wdWriteSector:
		if w.sectorDataPos < len(w.sectorData) {
			w.sectorData[w.sectorDataPos] = w.data
			w.sectorDataPos++
		}
		w.drqOut = w.sectorDataPos < len(w.sectorData)
	case wdWriteTrack:
		out := w.writeTrackByte(w.data)
		if w.rawTrackPos < len(w.rawTrack) {
			w.rawTrack[w.rawTrackPos] = out
			w.rawTrackPos++
		}
		w.drqOut = w.rawTrackPos < rawTrackSize
	default:
		w.drqOut = false
	}
}
