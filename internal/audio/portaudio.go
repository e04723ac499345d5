package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice plays PCM16LE through the system default output via
// PortAudio. The stream is opened with a fixed frames-per-buffer equal to
// the playback frame size; a final short frame is zero-padded to fill the
// last hardware buffer.
type PortAudioDevice struct {
	format Format
	stream *portaudio.Stream
	buf    []int16
	opened bool
}

func NewPortAudioDevice() *PortAudioDevice { return &PortAudioDevice{} }

func (d *PortAudioDevice) Open(f Format) error {
	if f.BitsPerSample != 16 {
		return &DeviceError{Op: "open", Err: fmt.Errorf("portaudio backend supports 16-bit PCM only, got %d bits", f.BitsPerSample)}
	}
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Op: "initialize", Err: err}
	}
	framesPerBuffer := f.FrameBytes / f.BlockAlign()
	d.buf = make([]int16, framesPerBuffer*f.Channels)
	stream, err := portaudio.OpenDefaultStream(0, f.Channels, float64(f.SampleRate), framesPerBuffer, &d.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return &DeviceError{Op: "open", Err: err}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return &DeviceError{Op: "start", Err: err}
	}
	d.format = f
	d.stream = stream
	d.opened = true
	return nil
}

func (d *PortAudioDevice) Write(frame []byte) error {
	if !d.opened {
		return &DeviceError{Op: "write", Err: fmt.Errorf("device not open")}
	}
	if len(frame)%d.format.BlockAlign() != 0 {
		return &DeviceError{Op: "write", Err: fmt.Errorf("frame length %d is not sample-aligned", len(frame))}
	}
	for i := range d.buf {
		d.buf[i] = 0
	}
	n := len(frame) / 2
	if n > len(d.buf) {
		n = len(d.buf)
	}
	for i := 0; i < n; i++ {
		d.buf[i] = int16(binary.LittleEndian.Uint16(frame[2*i:]))
	}
	if err := d.stream.Write(); err != nil {
		return &DeviceError{Op: "write", Err: err}
	}
	return nil
}

func (d *PortAudioDevice) Close() error {
	if !d.opened {
		return nil
	}
	d.opened = false
	var retErr error
	if err := d.stream.Stop(); err != nil {
		retErr = &DeviceError{Op: "stop", Err: err}
	}
	if err := d.stream.Close(); err != nil && retErr == nil {
		retErr = &DeviceError{Op: "close", Err: err}
	}
	if err := portaudio.Terminate(); err != nil && retErr == nil {
		retErr = &DeviceError{Op: "terminate", Err: err}
	}
	return retErr
}

func (d *PortAudioDevice) Name() string { return "portaudio" }
