// Package audio provides the streaming playback path: a Device abstraction
// over the output hardware, a rechunking Player that adapts irregular network
// chunks to fixed-size playback frames, and WAV persistence helpers.
package audio

import (
	"fmt"
	"strings"
)

// Format describes the fixed PCM triple a playback stream is opened with,
// plus the playback frame size in bytes. The synthesis provider must be
// configured for the same triple; the two are never negotiated per call.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	FrameBytes    int
}

// BlockAlign is the size in bytes of one complete sample frame
// (all channels of one sample).
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", f.Channels)
	}
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", f.BitsPerSample)
	}
	if f.FrameBytes <= 0 || f.FrameBytes%f.BlockAlign() != 0 {
		return fmt.Errorf("frame bytes must be a positive multiple of the %d-byte block align, got %d", f.BlockAlign(), f.FrameBytes)
	}
	return nil
}

// Device is an exclusive audio output. Open must be called before Write,
// and Close exactly once per successful Open, including on error paths.
// Write blocks until the device has accepted the frame.
type Device interface {
	Open(f Format) error
	Write(frame []byte) error
	Close() error
	Name() string
}

// DeviceError wraps output-device failures. It is fatal to the playback
// attempt that hit it, never to the process.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return "audio device " + e.Op + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Backend names accepted by NewDevice.
const (
	BackendAuto      = "auto"
	BackendPortAudio = "portaudio"
	BackendMock      = "mock"
)

// DeviceFactory produces a fresh Device per playback. Each synthesis call
// opens and closes its own device handle.
type DeviceFactory func() Device

// NewDeviceFactory selects a backend by name. "auto" resolves to PortAudio,
// the only hardware backend; "mock" is for tests and headless CI.
func NewDeviceFactory(backend string) (DeviceFactory, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto, BackendPortAudio:
		return func() Device { return NewPortAudioDevice() }, nil
	case BackendMock:
		return func() Device { return NewMockDevice() }, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
