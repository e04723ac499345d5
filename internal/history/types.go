package history

import (
	"context"
	"time"
)

// Interaction records one completed voice exchange: what the user said, what
// the assistant answered, and the artifacts captured along the way.
type Interaction struct {
	ID           string    `json:"id"`
	Transcript   string    `json:"transcript"`
	ResponseText string    `json:"response_text"`
	ImagePath    string    `json:"image_path,omitempty"`
	AudioPath    string    `json:"audio_path,omitempty"`
	UsedVision   bool      `json:"used_vision"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists and retrieves interaction history.
type Store interface {
	SaveInteraction(ctx context.Context, rec Interaction) error
	Recent(ctx context.Context, limit int) ([]Interaction, error)
	// SetAudioPath fills in the spoken-audio path once asynchronous playback
	// has produced a file.
	SetAudioPath(ctx context.Context, id, audioPath string) error
	Mode() string
	Close() error
}
