package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists interaction history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			transcript TEXT NOT NULL,
			response_text TEXT NOT NULL,
			image_path TEXT NOT NULL DEFAULT '',
			audio_path TEXT NOT NULL DEFAULT '',
			used_vision BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions (created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveInteraction(ctx context.Context, rec Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO interactions (id, transcript, response_text, image_path, audio_path, used_vision, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID,
		rec.Transcript,
		rec.ResponseText,
		rec.ImagePath,
		rec.AudioPath,
		rec.UsedVision,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, transcript, response_text, image_path, audio_path, used_vision, created_at
		 FROM interactions ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent interactions: %w", err)
	}
	defer rows.Close()

	items := make([]Interaction, 0, limit)
	for rows.Next() {
		var r Interaction
		if err := rows.Scan(&r.ID, &r.Transcript, &r.ResponseText, &r.ImagePath, &r.AudioPath, &r.UsedVision, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) SetAudioPath(ctx context.Context, id, audioPath string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE interactions SET audio_path=$2 WHERE id=$1`,
		id, audioPath,
	)
	if err != nil {
		return fmt.Errorf("set audio path: %w", err)
	}
	return nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
