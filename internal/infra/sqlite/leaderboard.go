package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"arcquiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS highscores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    score INTEGER NOT NULL,
    total INTEGER NOT NULL,
    percent REAL NOT NULL,
    created_at TEXT NOT NULL
);
`

// timeLayout is fixed-width so created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Leaderboard stores highscores in a local SQLite file.
type Leaderboard struct {
	db *sql.DB
}

// Open creates the parent directory and schema when missing.
func Open(path string) (*Leaderboard, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Leaderboard{db: db}, nil
}

func (l *Leaderboard) Close() error {
	return l.db.Close()
}

func (l *Leaderboard) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO highscores (name, score, total, percent, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.Name, entry.Score, entry.Total, entry.Percent, entry.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT name, score, total, percent, created_at
		FROM highscores
		ORDER BY percent DESC, score DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var (
			e       domain.LeaderboardEntry
			created string
		)
		if err := rows.Scan(&e.Name, &e.Score, &e.Total, &e.Percent, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
