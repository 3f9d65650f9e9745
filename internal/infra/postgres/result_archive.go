package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sheet-quiz/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultArchive keeps a copy of every finished session next to the
// spreadsheet, so results survive a lost POST.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) SaveResult(ctx context.Context, payload domain.ResultPayload) error {
	answers, err := jsonOrNull(payload.Answers)
	if err != nil {
		return err
	}
	correct, err := jsonOrNull(payload.CorrectAnswers)
	if err != nil {
		return err
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quiz_results (name, email, score, total, answers, correct_answers) VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)`,
		payload.Name, payload.Email, payload.Score, payload.Total, answers, correct)
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

// CheckEmail reports the latest archived result for email, if any.
func (a *ResultArchive) CheckEmail(ctx context.Context, email string) (domain.PriorResult, error) {
	var score, total int
	err := a.pool.QueryRow(ctx,
		`SELECT score, total FROM quiz_results WHERE email=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		email).Scan(&score, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PriorResult{}, nil
	}
	if err != nil {
		return domain.PriorResult{}, fmt.Errorf("%w: check email: %v", domain.ErrTransport, err)
	}
	return domain.PriorResult{Exists: true, Score: &score, Total: &total}, nil
}

func jsonOrNull(v [][]domain.Label) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	s := string(data)
	return &s, nil
}
