package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aic-scoring-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// GroundTruthLoader loads question ground truth JSONB from Postgres.
type GroundTruthLoader struct {
	pool *pgxpool.Pool
}

func NewGroundTruthLoader(pool *pgxpool.Pool) *GroundTruthLoader {
	return &GroundTruthLoader{pool: pool}
}

func (l *GroundTruthLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	question.ID = questionID
	return question, nil
}
