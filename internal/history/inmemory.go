package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process history store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Interaction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveInteraction(_ context.Context, rec Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]Interaction, 0, limit)
	for i := len(s.records) - limit; i < len(s.records); i++ {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *InMemoryStore) SetAudioPath(_ context.Context, id, audioPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].AudioPath = audioPath
			return nil
		}
	}
	return nil
}

func (s *InMemoryStore) Mode() string { return "inmemory" }

func (s *InMemoryStore) Close() error { return nil }
