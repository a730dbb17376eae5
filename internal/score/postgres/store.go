// Package postgres stores scores in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS scores (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT        NOT NULL UNIQUE,
    score       BIGINT      NOT NULL DEFAULT 0 CHECK (score >= 0),
    create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS scores_rank_idx ON scores (score DESC, id ASC);
`

type Config struct {
	DB *pgxpool.Pool
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(c Config) *Store {
	return &Store{db: c.DB}
}

// Migrate creates the scores table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (int64, bool, error) {
	const stmt = `SELECT score FROM scores WHERE user_id = $1;`

	var total int64
	err := s.db.QueryRow(ctx, stmt, userID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select score: %w", err)
	}

	return total, true, nil
}

func (s *Store) Add(ctx context.Context, userID string, delta int64) (int64, error) {
	const stmt = `
INSERT INTO scores (user_id, score)
    VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE
    SET score = scores.score + EXCLUDED.score, update_time = now()
RETURNING score;`

	var total int64
	if err := s.db.QueryRow(ctx, stmt, userID, delta).Scan(&total); err != nil {
		return 0, fmt.Errorf("upsert score: %w", err)
	}

	return total, nil
}

func (s *Store) Top(ctx context.Context, n int) ([]domain.ScoreEntry, error) {
	const stmt = `
SELECT user_id, score
FROM scores
ORDER BY score DESC, id ASC
LIMIT $1;`

	rows, err := s.db.Query(ctx, stmt, n)
	if err != nil {
		return nil, fmt.Errorf("select top scores: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ScoreEntry, error) {
		var e domain.ScoreEntry
		err := r.Scan(&e.UserID, &e.Score)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect top scores: %w", err)
	}

	return entries, nil
}
