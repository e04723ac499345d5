package audio

import "sync"

// Player adapts an incoming byte stream to fixed-size playback frames.
//
// Network chunks arrive at the producer's transport granularity, not the
// playback granularity. The player keeps a carry-over buffer; every time a
// full frame has accumulated it writes exactly one frame-sized slice to the
// device, in strict arrival order. At end of stream Flush writes the
// leftover partial frame trimmed to a whole number of sample frames, so at
// most BlockAlign-1 trailing bytes are ever dropped. A trailing partial
// sample is not an optimization concern: on 16-bit encodings an odd tail
// plays as a corrupted final sample.
type Player struct {
	dev    Device
	format Format

	mu     sync.Mutex
	carry  []byte
	frames int64
	closed bool
}

// NewPlayer validates the format and opens the device. The caller owns the
// returned player and must Close it exactly once.
func NewPlayer(dev Device, f Format) (*Player, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := dev.Open(f); err != nil {
		return nil, err
	}
	return &Player{dev: dev, format: f}, nil
}

// Push appends a network chunk and writes every complete frame it unlocks.
func (p *Player) Push(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carry = append(p.carry, chunk...)
	for len(p.carry) >= p.format.FrameBytes {
		if err := p.dev.Write(p.carry[:p.format.FrameBytes]); err != nil {
			return err
		}
		p.carry = p.carry[p.format.FrameBytes:]
		p.frames++
	}
	return nil
}

// Flush writes the final short frame, trimmed to the sample-frame boundary.
func (p *Player) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	tail := p.carry[:len(p.carry)-len(p.carry)%p.format.BlockAlign()]
	p.carry = nil
	if len(tail) == 0 {
		return nil
	}
	if err := p.dev.Write(tail); err != nil {
		return err
	}
	p.frames++
	return nil
}

// FramesWritten reports how many frames (full or final short) reached the
// device.
func (p *Player) FramesWritten() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Close releases the device. Safe to call once after any mix of Push/Flush
// outcomes.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.dev.Close()
}
