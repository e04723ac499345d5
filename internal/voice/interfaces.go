package voice

import (
	"context"
	"fmt"
)

// Transcriber converts a recorded audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer speaks text through the output device while persisting the
// audio, returning the path of the saved file. Speaking empty text is a
// no-op and returns an empty path.
type Synthesizer interface {
	Speak(ctx context.Context, text string) (string, error)
}

// SynthesisError reports a non-success response from the synthesis
// provider. The provider's message is carried verbatim.
type SynthesisError struct {
	StatusCode int
	Message    string
}

func (e *SynthesisError) Error() string {
	if e.StatusCode == 0 {
		return "synthesis failed: " + e.Message
	}
	return fmt.Sprintf("synthesis provider status %d: %s", e.StatusCode, e.Message)
}
