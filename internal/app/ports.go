package app

import (
	"context"

	"sheet-quiz/internal/domain"
)

// QuestionSource loads the question set for a new session (spreadsheet endpoint, cache, DB).
type QuestionSource interface {
	FetchQuestions(ctx context.Context) (domain.QuestionSet, error)
}

// AttemptTracker counts how many times an email started the question loop.
type AttemptTracker interface {
	Attempts(ctx context.Context, email string) (int, error)
	Increment(ctx context.Context, email string) (int, error)
}

// EmailChecker asks the endpoint whether an email already has a stored result.
type EmailChecker interface {
	CheckEmail(ctx context.Context, email string) (domain.PriorResult, error)
}

// ResultSink persists one finished session (spreadsheet endpoint, archive table).
type ResultSink interface {
	SaveResult(ctx context.Context, payload domain.ResultPayload) error
}

// ResultReporter accepts a finished session without blocking the caller.
type ResultReporter interface {
	Submit(payload domain.ResultPayload)
}
