// Package sqlite stores scores in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/victornm/trivia/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL UNIQUE,
    score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(score DESC, id ASC);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create directory: %w", err)
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer at a time; the upsert below stays atomic either way.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, userID string) (int64, bool, error) {
	const stmt = `SELECT score FROM scores WHERE user_id = ?;`

	var total int64
	err := s.db.QueryRowContext(ctx, stmt, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: get score: %w", err)
	}

	return total, true, nil
}

func (s *Store) Add(ctx context.Context, userID string, delta int64) (int64, error) {
	const stmt = `
INSERT INTO scores (user_id, score, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    score = score + excluded.score,
    updated_at = excluded.updated_at
RETURNING score;`

	now := time.Now().UTC().UnixMilli()

	var total int64
	if err := s.db.QueryRowContext(ctx, stmt, userID, delta, now, now).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: add score: %w", err)
	}

	return total, nil
}

func (s *Store) Top(ctx context.Context, n int) ([]domain.ScoreEntry, error) {
	const stmt = `SELECT user_id, score FROM scores ORDER BY score DESC, id ASC LIMIT ?;`

	rows, err := s.db.QueryContext(ctx, stmt, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: top scores: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ScoreEntry, 0, n)
	for rows.Next() {
		var e domain.ScoreEntry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, fmt.Errorf("sqlite: scan score: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
