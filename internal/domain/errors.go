package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every input error that keeps the session on its current screen.
	ErrValidation = errors.New("validation failed")
	// ErrBlankIdentity is returned when name or email is blank after trimming.
	ErrBlankIdentity = fmt.Errorf("%w: name and email are required", ErrValidation)
	// ErrNoSelection is returned when a question is answered with zero options.
	ErrNoSelection = fmt.Errorf("%w: select at least one option", ErrValidation)
	// ErrUnknownOption is returned when a selected label does not belong to the current question.
	ErrUnknownOption = fmt.Errorf("%w: unknown option", ErrValidation)

	// ErrTransport wraps network and decoding failures talking to the question endpoint.
	ErrTransport = errors.New("question endpoint unreachable")
	// ErrEmptySet indicates the endpoint answered but yielded no questions.
	ErrEmptySet = errors.New("no questions found")
	// ErrQuestionSetNotFound indicates a stored question set id is unknown.
	ErrQuestionSetNotFound = errors.New("question set not found")

	// ErrAttemptLimit blocks a participant that used up their attempts.
	ErrAttemptLimit = errors.New("maximum number of attempts reached")
	// ErrAlreadyTaken blocks a participant the endpoint already holds a result for.
	ErrAlreadyTaken = errors.New("quiz already taken")

	// ErrInvalidTransition is returned for actions that make no sense on the current screen.
	ErrInvalidTransition = errors.New("action not allowed on current screen")
	// ErrBusy is returned for input that arrives while questions are being fetched.
	ErrBusy = errors.New("questions are still loading")
)

// AlreadyTakenError carries the score the endpoint reported for an earlier attempt.
type AlreadyTakenError struct {
	Prior PriorResult
}

func (e *AlreadyTakenError) Error() string {
	if e.Prior.Score != nil && e.Prior.Total != nil {
		return fmt.Sprintf("%s (score %d / %d)", ErrAlreadyTaken, *e.Prior.Score, *e.Prior.Total)
	}
	return ErrAlreadyTaken.Error()
}

func (e *AlreadyTakenError) Unwrap() error { return ErrAlreadyTaken }
