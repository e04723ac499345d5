package history

import (
	"context"
	"testing"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, transcript := range []string{"first", "second", "third"} {
		if err := s.SaveInteraction(ctx, Interaction{Transcript: transcript}); err != nil {
			t.Fatalf("SaveInteraction() error = %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d items, want 2", len(recent))
	}
	if recent[0].Transcript != "second" || recent[1].Transcript != "third" {
		t.Fatalf("Recent() order = [%s, %s], want chronological tail", recent[0].Transcript, recent[1].Transcript)
	}
	for _, r := range recent {
		if r.ID == "" {
			t.Fatalf("interaction saved without generated ID")
		}
		if r.CreatedAt.IsZero() {
			t.Fatalf("interaction saved without timestamp")
		}
	}
}

func TestInMemoryStoreRecentEmpty(t *testing.T) {
	s := NewInMemoryStore()
	recent, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if recent != nil {
		t.Fatalf("Recent() = %v, want nil", recent)
	}
}

func TestInMemoryStoreSetAudioPath(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	rec := Interaction{ID: "abc", Transcript: "hello"}
	if err := s.SaveInteraction(ctx, rec); err != nil {
		t.Fatalf("SaveInteraction() error = %v", err)
	}
	if err := s.SetAudioPath(ctx, "abc", "audio_history/2025.wav"); err != nil {
		t.Fatalf("SetAudioPath() error = %v", err)
	}

	recent, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if recent[0].AudioPath != "audio_history/2025.wav" {
		t.Fatalf("AudioPath = %q", recent[0].AudioPath)
	}

	// Unknown ID is a quiet no-op.
	if err := s.SetAudioPath(ctx, "missing", "x.wav"); err != nil {
		t.Fatalf("SetAudioPath(unknown) error = %v", err)
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if s.Mode() != "inmemory" {
		t.Fatalf("Mode() = %q, want inmemory", s.Mode())
	}
}
