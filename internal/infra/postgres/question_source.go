package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arcquiz-service/internal/domain"
	"arcquiz-service/internal/questionbank"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSource loads a named question bank stored as JSONB.
type QuestionSource struct {
	pool *pgxpool.Pool
	name string
}

func NewQuestionSource(pool *pgxpool.Pool, name string) *QuestionSource {
	return &QuestionSource{pool: pool, name: name}
}

func (s *QuestionSource) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE name=$1`, s.name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: question_banks/%s", domain.ErrBankNotFound, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return questionbank.Parse(raw)
}

// Store upserts an already validated bank under the source's name.
func (s *QuestionSource) Store(ctx context.Context, questions []domain.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO question_banks (name, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		s.name, string(data))
	if err != nil {
		return fmt.Errorf("store question bank: %w", err)
	}
	return nil
}
