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

// QuestionLoader loads a question set stored as JSONB rows in the same shape
// the spreadsheet endpoint serves.
type QuestionLoader struct {
	pool  *pgxpool.Pool
	setID string
}

func NewQuestionLoader(pool *pgxpool.Pool, setID string) *QuestionLoader {
	return &QuestionLoader{pool: pool, setID: setID}
}

func (l *QuestionLoader) FetchQuestions(ctx context.Context) (domain.QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, l.setID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load question set %q: %w", l.setID, domain.ErrQuestionSetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load question set: %v", domain.ErrTransport, err)
	}
	var rows []domain.RawQuestion
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal question set: %w", err)
	}
	set := domain.NormalizeQuestions(rows)
	if len(set) == 0 {
		return nil, domain.ErrEmptySet
	}
	return set, nil
}

// StoreQuestionSet upserts rows under id.
func StoreQuestionSet(ctx context.Context, pool *pgxpool.Pool, id string, rows []domain.RawQuestion) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal question set: %w", err)
	}
	_, err = pool.Exec(ctx, `INSERT INTO question_sets (id, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, id, string(data))
	if err != nil {
		return fmt.Errorf("store question set: %w", err)
	}
	return nil
}
