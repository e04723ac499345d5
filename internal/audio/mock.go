package audio

import (
	"errors"
	"sync"
)

// MockDevice records every write instead of touching hardware. It doubles as
// the headless-CI backend and as the capture point for playback tests.
type MockDevice struct {
	mu     sync.Mutex
	format Format
	opened bool
	closed bool
	writes [][]byte

	OpenErr  error
	WriteErr error
}

func NewMockDevice() *MockDevice { return &MockDevice{} }

func (d *MockDevice) Open(f Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return &DeviceError{Op: "open", Err: d.OpenErr}
	}
	if d.opened && !d.closed {
		return &DeviceError{Op: "open", Err: errors.New("already open")}
	}
	d.format = f
	d.opened = true
	d.closed = false
	return nil
}

func (d *MockDevice) Write(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened || d.closed {
		return &DeviceError{Op: "write", Err: errors.New("device not open")}
	}
	if d.WriteErr != nil {
		return &DeviceError{Op: "write", Err: d.WriteErr}
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	d.writes = append(d.writes, buf)
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened || d.closed {
		return &DeviceError{Op: "close", Err: errors.New("device not open")}
	}
	d.closed = true
	return nil
}

func (d *MockDevice) Name() string { return "mock" }

// Writes returns a copy of every frame written so far, in order.
func (d *MockDevice) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	copy(out, d.writes)
	return out
}

// Opened reports whether Open ever succeeded.
func (d *MockDevice) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Closed reports whether the device has been released.
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// OpenedWith returns the format the device was opened with.
func (d *MockDevice) OpenedWith() Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}
