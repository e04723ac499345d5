package voice

import (
	"context"
	"sync"
)

// MockTranscriber returns a canned transcript. Used by handler tests and
// the mock provider mode.
type MockTranscriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	paths []string
}

func (m *MockTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	m.mu.Lock()
	m.paths = append(m.paths, audioPath)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Paths returns every audio path passed to Transcribe, in order.
func (m *MockTranscriber) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// MockSynthesizer records spoken texts instead of producing audio.
type MockSynthesizer struct {
	Path string
	Err  error

	mu    sync.Mutex
	texts []string
}

func (m *MockSynthesizer) Speak(_ context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Path, nil
}

// Texts returns every non-empty text passed to Speak, in order.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}
