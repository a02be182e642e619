package postgres

import (
	"context"
	"time"

	"arcquiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type highscore struct {
	bun.BaseModel `bun:"table:highscores"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Score     int       `bun:"score,notnull"`
	Total     int       `bun:"total,notnull"`
	Percent   float64   `bun:"percent,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Leaderboard stores highscores in Postgres through bun.
type Leaderboard struct {
	db *bun.DB
}

func NewLeaderboard(db *bun.DB) *Leaderboard {
	return &Leaderboard{db: db}
}

func (l *Leaderboard) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	row := &highscore{
		Name:      entry.Name,
		Score:     entry.Score,
		Total:     entry.Total,
		Percent:   entry.Percent,
		CreatedAt: entry.CreatedAt,
	}
	_, err := l.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []highscore
	err := l.db.NewSelect().
		Model(&rows).
		OrderExpr("percent DESC, score DESC, created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			Name:      r.Name,
			Score:     r.Score,
			Total:     r.Total,
			Percent:   r.Percent,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return entries, nil
}
