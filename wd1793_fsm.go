// wd1793_fsm.go - WD1793 state machine: process(), command dispatch, transfer pacing
// (spec §4.10).
//
// Grounded on spec.md §4.10's process()/dispatch/transition contract, since the original's
// wd1793.cpp (2800+ lines) folds the NEC765/WD2797/1793 timing variants the spec
// deliberately narrows away; the FSM here implements the single WD1793 behavior the spec
// names.

package main

// byteTimeT is the T-state duration of one MFM byte at 250kbps (spec §4.10 lost-data rule).
func (w *WD1793) byteTimeT() uint64 {
	return w.clock.cpuFrequency / wdByteTimeDivisor
}

func (w *WD1793) sleepAfterIdleT() uint64 {
	return uint64(wdSleepAfterIdleFrames) * w.clock.cpuFrequency
}

// transition immediately moves to next.
func (w *WD1793) transition(next wdState) {
	w.state = next
}

// transitionWithDelay stores state2/delayT and enters Wait; each Process() tick in Wait
// subtracts diff until delayT <= 0, then transitions to state2 (spec §4.10).
func (w *WD1793) transitionWithDelay(next wdState, dt int64) {
	w.state2 = next
	w.delayT = dt - 1
	w.state = wdWait
}

// Process advances the FDC by however much time has elapsed on the shared clock since the
// last call (spec §4.10's process(): update_clock; update_motor; update_index;
// monitor_forced_interrupts; dispatch).
func (w *WD1793) Process() {
	now := w.clock.Now()
	var diff uint64
	if now > w.lastTState {
		diff = now - w.lastTState
	}
	w.lastTState = now

	if w.sleeping {
		return
	}

	w.updateMotor(diff)
	w.updateIndex(diff)
	w.monitorForcedInterrupts()
	w.dispatch(diff)
	w.checkSleep()
}

func (w *WD1793) updateMotor(diff uint64) {
	fdd := w.selectedFDD()
	if fdd == nil {
		return
	}
	fdd.Advance(diff)
	if !fdd.IsMotorOn() || w.state != wdIdle {
		return
	}
	if w.motorStopTimeoutT > uint32(diff) {
		w.motorStopTimeoutT -= uint32(diff)
	} else {
		w.motorStopTimeoutT = 0
		fdd.SetMotor(false)
		w.hldOut = false
	}
}

func (w *WD1793) updateIndex(diff uint64) {
	fdd := w.selectedFDD()
	if fdd == nil {
		return
	}
	idx := fdd.IsIndexPulse()
	if idx && !w.prevIndex {
		w.indexPulseCount++
		if w.state == wdWaitIndex {
			w.transition(w.state2)
		}
	}
	w.prevIndex = idx
	w.indexLevel = idx
}

func (w *WD1793) monitorForcedInterrupts() {
	if !w.forceInterruptArmed {
		return
	}
	cond := w.forceInterruptCond
	fdd := w.selectedFDD()
	ready := fdd != nil && fdd.IsDiskInserted()

	fire := false
	if cond&0x04 != 0 && w.indexPulseCount > 0 {
		fire = true
	}
	if cond&0x01 != 0 && ready {
		fire = true
	}
	if cond&0x02 != 0 && !ready {
		fire = true
	}
	if fire {
		w.raiseIntrq()
		w.forceInterruptArmed = false
	}
}

func (w *WD1793) checkSleep() {
	if w.state == wdIdle && w.motorStopTimeoutT == 0 {
		w.sleeping = true
	}
}

func (w *WD1793) dispatch(diff uint64) {
	switch w.state {
	case wdIdle:
		// nothing scheduled
	case wdWait:
		w.delayT -= int64(diff)
		if w.delayT <= 0 {
			w.state = w.state2
		}
	case wdStep:
		w.doStep()
	case wdVerify:
		w.doVerify()
	case wdSearchID:
		w.doSearchID()
	case wdReadSector:
		w.pumpReadSector(diff)
	case wdWriteSector:
		w.pumpWriteSector(diff)
	case wdWaitIndex:
		// handled by updateIndex's rising-edge detection
	case wdReadTrack:
		w.pumpReadTrack(diff)
	case wdWriteTrack:
		w.pumpWriteTrack(diff)
	case wdEndCommand:
		w.doEndCommand()
	}
}

// ExecuteCommand decodes and begins executing cmd, per a write to port 1F (spec §4.10
// step 1-2). Ignored while BUSY unless it is a Force Interrupt.
func (w *WD1793) ExecuteCommand(cmd byte) {
	w.wake()
	ctype := decodeCommand(cmd)
	if w.IsBusy() && ctype != wdCmdForceInterrupt {
		return
	}
	w.intrqOut = false
	w.command = cmd
	w.cmdBits = cmd
	w.cmdType = ctype

	if ctype == wdCmdForceInterrupt {
		w.execForceInterrupt(cmd)
		return
	}

	switch ctype {
	case wdCmdRestore, wdCmdSeek, wdCmdStep, wdCmdStepIn, wdCmdStepOut:
		w.startType1(cmd)
	case wdCmdReadSector, wdCmdWriteSector, wdCmdReadAddress:
		w.startType2(cmd)
	case wdCmdReadTrack, wdCmdWriteTrack:
		w.startType3(cmd)
	}
}

func (w *WD1793) execForceInterrupt(cmd byte) {
	w.statusIsType1 = true
	if forceInterruptImmediate(cmd) {
		w.setBusy(false)
		w.state = wdIdle
		w.forceInterruptArmed = false
		return
	}
	if forceInterruptBit3(cmd) {
		w.raiseIntrq()
		w.setBusy(false)
		w.state = wdIdle
		return
	}
	w.forceInterruptCond = forceInterruptCondBits(cmd)
	w.forceInterruptArmed = true
}

// startType1 begins a Restore/Seek/Step/StepIn/StepOut command (spec §4.10 step 3).
func (w *WD1793) startType1(cmd byte) {
	w.clearErrors()
	w.setBusy(true)
	w.statusIsType1 = true
	fdd := w.selectedFDD()
	if fdd != nil {
		fdd.SetMotor(true)
	}
	w.hldOut = type1HeadLoad(cmd)
	w.delayFlag = false
	w.transition(wdStep)
}

func (w *WD1793) doStep() {
	fdd := w.selectedFDD()
	switch w.cmdType {
	case wdCmdRestore:
		if fdd != nil && fdd.IsTrack00() {
			w.track = 0
			w.transitionWithDelay(wdVerify, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
			return
		}
		w.stepHead(true)
	case wdCmdSeek:
		if w.track == w.data {
			w.transitionWithDelay(wdVerify, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
			return
		}
		w.stepHead(w.track < w.data)
	case wdCmdStep:
		w.transitionWithDelay(wdVerify, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
		return
	case wdCmdStepIn:
		w.stepHeadDirect(true)
		w.transitionWithDelay(wdVerify, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
		return
	case wdCmdStepOut:
		w.stepHeadDirect(false)
		w.transitionWithDelay(wdVerify, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
		return
	}
	w.transitionWithDelay(wdStep, int64(type1Rate(w.cmdBits))*int64(w.clock.TStatesPerMillisecond()))
}

func (w *WD1793) stepHead(toward bool) {
	w.stepHeadDirect(toward)
}

func (w *WD1793) stepHeadDirect(inward bool) {
	fdd := w.selectedFDD()
	if inward {
		if w.track < maxPhysicalCylinder {
			w.track++
		}
	} else if w.track > 0 {
		w.track--
	}
	if fdd != nil {
		fdd.SetTrack(w.track)
	}
	if type1TrackUpdate(w.cmdBits) {
		// track register tracking is implicit: w.track already holds it
		_ = w.track
	}
}

// doVerify scans the current track's sector list once for an ID whose cylinder matches the
// track register and sets SEEK_ERROR if none matches; no revolutions or timing are modelled.
func (w *WD1793) doVerify() {
	if !type1Verify(w.cmdBits) {
		w.transition(wdEndCommand)
		return
	}
	trk := w.trackView()
	if trk == nil {
		w.seekError = true
		w.transition(wdEndCommand)
		return
	}
	found := false
	for _, s := range trk.Sectors {
		if s.valid && s.Cylinder == w.track {
			found = true
			break
		}
	}
	if !found {
		w.seekError = true
	}
	w.transition(wdEndCommand)
}

// startType2 begins a Read Sector / Write Sector / Read Address command (spec §4.10
// step 4).
func (w *WD1793) startType2(cmd byte) {
	w.clearErrors()
	w.setBusy(true)
	w.statusIsType1 = false
	fdd := w.selectedFDD()
	if fdd == nil || !fdd.IsDiskInserted() {
		w.status |= wdsNotRdy
		w.transition(wdEndCommand)
		return
	}
	w.status &^= wdsNotRdy
	fdd.SetMotor(true)
	w.hldOut = true
	w.sideCompare = type2SideCompare(cmd)
	w.sideExpected = type2Side(cmd)
	w.multiSector = type2Multiple(cmd)
	w.deletedMark = type2WriteDeleted(cmd)
	w.idamSearchRevolutions = 0

	if type2Delay(cmd) {
		w.transitionWithDelay(wdSearchID, int64(wdVerifyDelayMs)*int64(w.clock.TStatesPerMillisecond()))
		return
	}
	w.transition(wdSearchID)
}

func (w *WD1793) trackView() *Track {
	fdd := w.selectedFDD()
	if fdd == nil || fdd.DiskImage() == nil {
		return nil
	}
	return fdd.DiskImage().GetTrackFor(w.track, boolToByte(fdd.Side()))
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// doSearchID looks for an IDAM matching the wanted sector (spec §4.10 step 4). Each dispatch
// tick without a match counts as one revolution; RNF follows 5 such ticks for Type II, 4 for
// Read Address. No rotation timing is modelled.
func (w *WD1793) doSearchID() {
	maxRevs := 5
	if w.cmdType == wdCmdReadAddress {
		maxRevs = 4
	}
	trk := w.trackView()
	if trk == nil {
		w.recordNotFound = true
		w.transition(wdEndCommand)
		return
	}
	idx := trk.physicalIndexFor(w.sector)
	if idx < 0 {
		w.idamSearchRevolutions++
		if w.idamSearchRevolutions >= maxRevs {
			w.recordNotFound = true
			w.transition(wdEndCommand)
		}
		return
	}
	sec := trk.Sectors[idx]
	switch w.cmdType {
	case wdCmdReadSector:
		w.sectorData = append([]byte(nil), sec.Data...)
		w.sectorDataPos = 0
		w.primeDataRegister(w.sectorData)
		w.drqOut = true
		w.lostDataAccumT = 0
		w.transition(wdReadSector)
	case wdCmdWriteSector:
		if w.writeProtect {
			w.writeFault = true
			w.transition(wdEndCommand)
			return
		}
		size := sectorLenToSize(sec.SectorLenCode)
		w.sectorData = make([]byte, size)
		w.sectorDataPos = 0
		w.drqOut = true
		w.lostDataAccumT = 0
		w.transition(wdWriteSector)
	case wdCmdReadAddress:
		w.sectorData = sec.idamBytes()[1:]
		w.sectorDataPos = 0
		w.primeDataRegister(w.sectorData)
		w.drqOut = true
		w.lostDataAccumT = 0
		w.sector = sec.Sector
		w.transition(wdReadSector)
	}
}

// primeDataRegister loads the data register with the first byte of a freshly started
// read transfer. Without this, the host's first port 7F read would return the previous
// transfer's stale data value instead of data[0] (spec §4.10 Read Sector/Track/Address).
func (w *WD1793) primeDataRegister(data []byte) {
	if len(data) > 0 {
		w.data = data[0]
	}
}

// checkLostData accumulates elapsed time since the host last serviced DRQ and latches
// LOST_DATA once a full byte time has passed without service, rather than on any nonzero
// elapsed time (spec §4.10 lost-data rule). Returns true if it ended the command.
func (w *WD1793) checkLostData(diff uint64) bool {
	if !w.drqOut {
		return false
	}
	w.lostDataAccumT += diff
	if w.lostDataAccumT <= w.byteTimeT() {
		return false
	}
	w.lostData = true
	w.transition(wdEndCommand)
	return true
}

// pumpReadSector and pumpWriteSector deliver/accept data at byte-rate pace, latching
// lost-data if the host fails to service DRQ before the next byte time (spec §4.10 lost
// data rule).
func (w *WD1793) pumpReadSector(diff uint64) {
	if w.sectorDataPos >= len(w.sectorData) {
		if w.multiSector {
			w.sector++
			w.transition(wdSearchID)
			return
		}
		w.transition(wdEndCommand)
		return
	}
	w.checkLostData(diff)
}

func (w *WD1793) pumpWriteSector(diff uint64) {
	if w.sectorDataPos >= len(w.sectorData) {
		trk := w.trackView()
		if trk != nil {
			trk.WriteSector(w.sector, w.sectorData)
		}
		if w.multiSector {
			w.sector++
			w.transition(wdSearchID)
			return
		}
		w.transition(wdEndCommand)
		return
	}
	w.checkLostData(diff)
}

// startType3 begins Read Track / Write Track (spec §4.10 step 5): wait for the next
// index pulse, then stream exactly rawTrackSize bytes.
func (w *WD1793) startType3(cmd byte) {
	w.clearErrors()
	w.setBusy(true)
	w.statusIsType1 = false
	fdd := w.selectedFDD()
	if fdd == nil || !fdd.IsDiskInserted() {
		w.status |= wdsNotRdy
		w.transition(wdEndCommand)
		return
	}
	fdd.SetMotor(true)
	w.hldOut = true

	if w.cmdType == wdCmdReadTrack {
		trk := w.trackView()
		if trk != nil {
			w.rawTrack = trk.Raw
		}
		w.primeDataRegister(w.rawTrack)
	} else {
		w.rawTrack = make([]byte, rawTrackSize)
		w.crcAccumulator = newCRCWD1793Stream()
	}
	w.rawTrackPos = 0
	w.drqOut = true
	w.lostDataAccumT = 0
	w.state2 = pickTrackState(w.cmdType)
	w.state = wdWaitIndex
}

func pickTrackState(ctype wdCommandType) wdState {
	if ctype == wdCmdReadTrack {
		return wdReadTrack
	}
	return wdWriteTrack
}

func (w *WD1793) pumpReadTrack(diff uint64) {
	if w.rawTrackPos >= rawTrackSize {
		w.transition(wdEndCommand)
		return
	}
	w.checkLostData(diff)
}

func (w *WD1793) pumpWriteTrack(diff uint64) {
	if w.rawTrackPos >= rawTrackSize {
		trk := w.trackView()
		if trk != nil {
			trk.ReindexFromMFM(w.rawTrack)
		}
		w.transition(wdEndCommand)
		return
	}
	w.checkLostData(diff)
}

// writeTrackByte interprets one incoming Write Track data byte per the special-byte table
// (spec §4.10 step 5) and returns the byte actually written to the raw track buffer.
func (w *WD1793) writeTrackByte(in byte) byte {
	switch in {
	case 0xF5:
		w.crcAccumulator.reset()
		return 0xA1
	case 0xF6:
		return 0xC2
	case 0xF7:
		hi, lo := w.crcAccumulator.bytes()
		if w.rawTrackPos < len(w.rawTrack) {
			w.rawTrack[w.rawTrackPos] = hi
			w.rawTrackPos++
		}
		return lo
	case 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFE:
		w.crcAccumulator.add(in)
		return in
	default:
		w.crcAccumulator.add(in)
		return in
	}
}

func (w *WD1793) doEndCommand() {
	w.setBusy(false)
	w.drqOut = false
	w.hldOut = false
	w.raiseIntrq()
	w.applyErrorStatus()
	w.state = wdIdle
	w.motorStopTimeoutT = fddMotorStopTimeoutT(w.clock.cpuFrequency)
}

func (w *WD1793) applyErrorStatus() {
	w.status &^= (wdsLost | wdsCRCErr | wdsNotFound | wdsWrFault | wdsWriteP)
	if w.lostData {
		w.status |= wdsLost
	}
	if w.crcError {
		w.status |= wdsCRCErr
	}
	if w.recordNotFound {
		w.status |= wdsNotFound
	}
	if w.writeFault {
		w.status |= wdsWrFault
	}
	if w.writeProtect {
		w.status |= wdsWriteP
	}
	if w.seekError {
		w.status |= wdsSeekErr
	}
}

func (w *WD1793) wake() {
	w.sleeping = false
	w.wakeTimestamp = w.clock.Now()
	w.lastTState = w.wakeTimestamp
}
