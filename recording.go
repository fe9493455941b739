// recording.go - Emulated-time video/audio recording hook (C12).
//
// Grounded on original_source/core/src/emulator/recording/recordingmanager.h's
// emulated-time-not-wall-clock design (frames/samples captured timestamp off the emulated
// rate so turbo mode plays back at normal speed), trimmed to the single plug-point encoder
// interface spec §4.12 names; the original's multi-track/channel-split audio routing is out
// of scope here (this spec has no audio subsystem to route from).

package main

import "fmt"

// VideoAudioEncoder is the pluggable recording backend (spec §4.12).
type VideoAudioEncoder interface {
	Init(path string, videoKbps, audioKbps uint32) error
	EncodeVideo(frame []byte, t float64) error
	EncodeAudio(samples []int16, count int, t float64) error
	Finalize() error
}

const (
	recordingFPS        = 50.0    // ZX Spectrum native frame rate
	recordingSampleRate = 44100.0 // Hz
)

// RecordingHook drives a VideoAudioEncoder using emulated-time timestamps (spec §4.12).
type RecordingHook struct {
	encoder VideoAudioEncoder
	active  bool

	videoCodec string
	audioCodec string

	framesCaptured  uint64
	samplesCaptured uint64
}

// NewRecordingHook wires the pluggable encoder backend.
func NewRecordingHook(encoder VideoAudioEncoder) *RecordingHook {
	return &RecordingHook{encoder: encoder}
}

// StartRecording begins capture, feature-gated by the caller on "recording" (spec §4.12).
// Returns false on an encoder init failure; never panics.
func (r *RecordingHook) StartRecording(path, videoCodec, audioCodec string, videoKbps, audioKbps uint32) bool {
	if r.encoder == nil {
		fmt.Println("recording: no encoder backend configured")
		return false
	}
	if err := r.encoder.Init(path, videoKbps, audioKbps); err != nil {
		fmt.Printf("recording: init failed: %v\n", err)
		return false
	}
	r.videoCodec = videoCodec
	r.audioCodec = audioCodec
	r.framesCaptured = 0
	r.samplesCaptured = 0
	r.active = true
	return true
}

// StopRecording finalizes the encoder and ends capture.
func (r *RecordingHook) StopRecording() {
	if !r.active {
		return
	}
	r.active = false
	if err := r.encoder.Finalize(); err != nil {
		fmt.Printf("recording: finalize failed: %v\n", err)
	}
}

// IsRecording reports whether capture is currently active.
func (r *RecordingHook) IsRecording() bool { return r.active }

// CaptureFrame stamps and forwards a video frame with timestamp frames_captured/fps, so
// turbo-mode capture still yields normal-speed playback (spec §4.12).
func (r *RecordingHook) CaptureFrame(frame []byte) {
	if !r.active {
		return
	}
	t := float64(r.framesCaptured) / recordingFPS
	if err := r.encoder.EncodeVideo(frame, t); err != nil {
		fmt.Printf("recording: video encode failed: %v\n", err)
		return
	}
	r.framesCaptured++
}

// CaptureAudio stamps and forwards an audio chunk with timestamp samples_captured/rate.
func (r *RecordingHook) CaptureAudio(samples []int16) {
	if !r.active {
		return
	}
	t := float64(r.samplesCaptured) / recordingSampleRate
	if err := r.encoder.EncodeAudio(samples, len(samples), t); err != nil {
		fmt.Printf("recording: audio encode failed: %v\n", err)
		return
	}
	r.samplesCaptured += uint64(len(samples))
}

// FramesCaptured and SamplesCaptured expose the emulated-time counters.
func (r *RecordingHook) FramesCaptured() uint64  { return r.framesCaptured }
func (r *RecordingHook) SamplesCaptured() uint64 { return r.samplesCaptured }
