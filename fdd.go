// fdd.go - Virtual floppy drive: motor/head/track model and index-pulse generation (C9).
//
// Grounded on original_source/core/src/emulator/io/fdc/fdd.h's FDD class: the same
// motor-on/off notification pattern (there via MessageCenter::Post, here via
// NotificationBus.Post), the same index-pulse timing constants translated from
// milliseconds to T-states per spec §4.9, and the same insert/eject contract.

package main

import "fmt"

const (
	maxPhysicalCylinder = 86

	// fddMotorStopTimeoutMs is the default motor-stop timeout (spec §3.5).
	fddMotorStopTimeoutMs = 200
)

// FDD is one virtual floppy drive (spec §3.5).
type FDD struct {
	emulatorID string
	driveID    byte

	motorOn          bool
	track            byte
	side             bool
	writeProtected   bool
	indexPulse       bool
	motorStopTimeout uint32 // in T-states; 0 == stopped

	disk *DiskImage

	cpuFrequency uint64
	notify       *NotificationBus

	indexCounter uint64 // T-states since the current revolution began
}

// NewFDD constructs a drive bound to the given notification bus and nominal CPU frequency
// (needed to convert the 300RPM index-pulse period into T-states, spec §4.9).
func NewFDD(emulatorID string, driveID byte, cpuFrequency uint64, bus *NotificationBus) *FDD {
	return &FDD{
		emulatorID:   emulatorID,
		driveID:      driveID,
		cpuFrequency: cpuFrequency,
		notify:       bus,
	}
}

// rotationPeriodT is F_cpu / 5 (300 RPM), and pulseDurationT is 2% of that (~4ms), per
// spec §4.9.
func (f *FDD) rotationPeriodT() uint64 {
	return f.cpuFrequency / 5
}

func (f *FDD) pulseDurationT() uint64 {
	return f.rotationPeriodT() * 2 / 100
}

// SetMotor toggles the spindle. Transitions emit FDD_MOTOR_STARTED/STOPPED (spec §4.9).
func (f *FDD) SetMotor(on bool) {
	if f.motorOn == on {
		return
	}
	f.motorOn = on
	if on {
		f.motorStopTimeout = fddMotorStopTimeoutT(f.cpuFrequency)
		f.indexCounter = 0
		f.postDrive(NotifyFDDMotorStarted)
	} else {
		f.indexPulse = false
		f.postDrive(NotifyFDDMotorStopped)
	}
}

func fddMotorStopTimeoutT(cpuFrequency uint64) uint32 {
	return uint32(cpuFrequency / 1000 * fddMotorStopTimeoutMs)
}

// InsertDisk mounts a disk image. A nil disk is a no-op that emits no notification (spec
// §4.9).
func (f *FDD) InsertDisk(disk *DiskImage) {
	if disk == nil {
		return
	}
	f.disk = disk
	path := disk.FilePath
	f.notify.Post(Notification{
		EventID: NotifyFDDDiskInserted, EmulatorID: f.emulatorID, DriveID: f.driveID, DiskPath: path,
	})
}

// EjectDisk unmounts the current disk, if any. A safe no-op when no disk is inserted
// (spec §4.9).
func (f *FDD) EjectDisk() {
	if f.disk == nil {
		return
	}
	path := f.disk.FilePath
	f.disk = nil
	f.notify.Post(Notification{
		EventID: NotifyFDDDiskEjected, EmulatorID: f.emulatorID, DriveID: f.driveID, DiskPath: path,
	})
}

func (f *FDD) postDrive(eventID string) {
	f.notify.Post(Notification{EventID: eventID, EmulatorID: f.emulatorID, DriveID: f.driveID})
}

// Advance moves the drive's index-pulse model forward by dt T-states. Only generates
// pulses while a disk is inserted and the motor is running (spec §3.5 invariant,
// §4.9).
func (f *FDD) Advance(dt uint64) {
	if !f.motorOn || f.disk == nil {
		f.indexPulse = false
		return
	}
	period := f.rotationPeriodT()
	pulse := f.pulseDurationT()
	f.indexCounter = (f.indexCounter + dt) % period
	f.indexPulse = f.indexCounter < pulse
}

func (f *FDD) IsTrack00() bool        { return f.track == 0 }
func (f *FDD) GetTrack() byte         { return f.track }
func (f *FDD) IsWriteProtect() bool   { return f.writeProtected }
func (f *FDD) SetWriteProtect(v bool) { f.writeProtected = v }
func (f *FDD) IsDiskInserted() bool   { return f.disk != nil }
func (f *FDD) IsIndexPulse() bool     { return f.indexPulse }
func (f *FDD) IsMotorOn() bool        { return f.motorOn }
func (f *FDD) Side() bool             { return f.side }
func (f *FDD) SetSide(top bool)       { f.side = top }
func (f *FDD) DiskImage() *DiskImage  { return f.disk }

// SetTrack moves the head, clamped to maxPhysicalCylinder (spec §3.5 invariant).
func (f *FDD) SetTrack(track byte) {
	if track > maxPhysicalCylinder {
		track = maxPhysicalCylinder
	}
	f.track = track
}

func (f *FDD) String() string {
	return fmt.Sprintf("FDD{drive=%d track=%d motor=%v inserted=%v}", f.driveID, f.track, f.motorOn, f.disk != nil)
}
