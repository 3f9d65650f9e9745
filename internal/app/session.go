package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is the attempt limit used when limiting is switched on without a value.
const DefaultMaxAttempts = 2

// Deps are the collaborators a session talks to. Only Questions is required.
type Deps struct {
	Questions QuestionSource
	Attempts  AttemptTracker
	Emails    EmailChecker
	Reporter  ResultReporter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Options are the per-deployment switches of the quiz flow.
type Options struct {
	Policy        domain.ScoringPolicy
	Shuffle       bool
	Instructions  string
	MaxAttempts   int // 0 disables attempt limiting
	CheckEmail    bool
	ReportAnswers bool
	Rand          RandSource
}

// Session is the state machine of one participant taking the quiz:
// login -> [instructions] -> question(0..n-1) -> result <-> review.
type Session struct {
	id   string
	deps Deps
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	screen     domain.Screen
	name       string
	email      string
	questions  domain.QuestionSet
	current    int
	score      int
	answers    [][]domain.Label
	loading    bool
	generation uint64
}

// NewSession returns a session sitting on the login screen.
func NewSession(deps Deps, opts Options) *Session {
	if !opts.Policy.Valid() {
		opts.Policy = domain.PolicyAnyCorrectNoWrong
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		deps:   deps,
		opts:   opts,
		log:    log.With(zap.String("session", id)),
		screen: domain.ScreenLogin,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Login validates the participant, enforces the attempt rules and fetches the
// question set. On any error the session stays on the login screen.
func (s *Session) Login(ctx context.Context, name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	if s.screen != domain.ScreenLogin {
		s.mu.Unlock()
		return fmt.Errorf("login on %s screen: %w", s.screen, domain.ErrInvalidTransition)
	}
	if name == "" || email == "" {
		s.mu.Unlock()
		return domain.ErrBlankIdentity
	}
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	questions, err := s.prepare(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return fmt.Errorf("session restarted while loading: %w", domain.ErrInvalidTransition)
	}
	s.loading = false
	if err != nil {
		s.log.Info("login rejected", zap.String("email", email), zap.Error(err))
		return err
	}

	s.name = name
	s.email = email
	s.questions = questions
	s.current = 0
	s.score = 0
	s.answers = make([][]domain.Label, 0, len(questions))

	if s.opts.Instructions != "" {
		s.screen = domain.ScreenInstructions
		return nil
	}
	s.startLocked(ctx)
	return nil
}

// prepare runs the guards that need I/O. It is called without holding the lock.
func (s *Session) prepare(ctx context.Context, email string) (domain.QuestionSet, error) {
	if s.opts.MaxAttempts > 0 && s.deps.Attempts != nil {
		used, err := s.deps.Attempts.Attempts(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("read attempts: %w", err)
		}
		if used >= s.opts.MaxAttempts {
			return nil, fmt.Errorf("%d of %d attempts used: %w", used, s.opts.MaxAttempts, domain.ErrAttemptLimit)
		}
	}

	if s.opts.CheckEmail && s.deps.Emails != nil {
		prior, err := s.deps.Emails.CheckEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if prior.Exists {
			return nil, &domain.AlreadyTakenError{Prior: prior}
		}
	}

	questions, err := s.deps.Questions.FetchQuestions(ctx)
	if err != nil {
		s.deps.Metrics.FetchFailed()
		return nil, err
	}
	if len(questions) == 0 {
		s.deps.Metrics.FetchFailed()
		return nil, domain.ErrEmptySet
	}
	if s.opts.Shuffle {
		Shuffle(questions, s.opts.Rand)
	}
	return questions, nil
}

// Begin leaves the instructions screen and starts the question loop.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenInstructions {
		return fmt.Errorf("begin on %s screen: %w", s.screen, domain.ErrInvalidTransition)
	}
	s.startLocked(ctx)
	return nil
}

// startLocked enters question(0); the attempt counter moves only here.
func (s *Session) startLocked(ctx context.Context) {
	s.screen = domain.ScreenQuestion
	s.deps.Metrics.SessionStarted()
	if s.deps.Attempts != nil {
		n, err := s.deps.Attempts.Increment(ctx, s.email)
		if err != nil {
			s.log.Warn("failed to record attempt", zap.String("email", s.email), zap.Error(err))
		} else {
			s.log.Debug("attempt recorded", zap.String("email", s.email), zap.Int("attempts", n))
		}
	}
	s.log.Info("quiz started", zap.String("name", s.name), zap.Int("questions", len(s.questions)))
}

// Answer records the selection for the current question, scores it and
// advances. Submitting the last question moves to the result screen and hands
// the outcome to the reporter without waiting for it.
func (s *Session) Answer(_ context.Context, selected []domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenQuestion {
		return fmt.Errorf("answer on %s screen: %w", s.screen, domain.ErrInvalidTransition)
	}

	q := s.questions[s.current]
	picked, err := normalizeSelection(q, selected)
	if err != nil {
		return err
	}

	s.answers = append(s.answers, picked)
	if Score(s.opts.Policy, q.Correct, picked) {
		s.score++
	}
	s.current++

	if s.current < len(s.questions) {
		return nil
	}

	s.screen = domain.ScreenResult
	s.deps.Metrics.SessionCompleted(s.score, len(s.questions))
	s.log.Info("quiz finished", zap.String("email", s.email), zap.Int("score", s.score), zap.Int("total", len(s.questions)))
	if s.deps.Reporter != nil {
		s.deps.Reporter.Submit(s.payloadLocked())
	}
	return nil
}

// normalizeSelection dedupes the labels, rejects unknown ones and returns
// them in rendered option order.
func normalizeSelection(q domain.Question, selected []domain.Label) ([]domain.Label, error) {
	chosen := make(map[domain.Label]struct{}, len(selected))
	for _, raw := range selected {
		label := domain.ParseLabel(string(raw))
		if label == "" {
			continue
		}
		if !q.HasOption(label) {
			return nil, fmt.Errorf("%w %q", domain.ErrUnknownOption, label)
		}
		chosen[label] = struct{}{}
	}
	if len(chosen) == 0 {
		return nil, domain.ErrNoSelection
	}
	picked := make([]domain.Label, 0, len(chosen))
	for _, opt := range q.Options {
		if _, ok := chosen[opt.Label]; ok {
			picked = append(picked, opt.Label)
		}
	}
	return picked, nil
}

func (s *Session) payloadLocked() domain.ResultPayload {
	payload := domain.ResultPayload{
		Action: domain.ActionSaveResult,
		Name:   s.name,
		Email:  s.email,
		Score:  s.score,
		Total:  len(s.questions),
	}
	if s.opts.ReportAnswers {
		payload.Answers = cloneAnswers(s.answers)
		payload.CorrectAnswers = s.questions.CorrectAnswers()
	}
	return payload
}

// ShowReview switches from the result to the answer review. Repeating it is a no-op.
func (s *Session) ShowReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenResult && s.screen != domain.ScreenReview {
		return fmt.Errorf("review on %s screen: %w", s.screen, domain.ErrInvalidTransition)
	}
	s.screen = domain.ScreenReview
	return nil
}

// HideReview returns to the result screen. Repeating it is a no-op.
func (s *Session) HideReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != domain.ScreenResult && s.screen != domain.ScreenReview {
		return fmt.Errorf("hide review on %s screen: %w", s.screen, domain.ErrInvalidTransition)
	}
	s.screen = domain.ScreenResult
	return nil
}

// Restart drops everything the session knows and goes back to login. A
// question fetch still in flight is abandoned.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.loading = false
	s.screen = domain.ScreenLogin
	s.name = ""
	s.email = ""
	s.questions = nil
	s.current = 0
	s.score = 0
	s.answers = nil
}

// Screen returns the current screen.
func (s *Session) Screen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// CurrentIndex returns the index of the question being shown.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Score returns the points collected so far.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Answers returns a copy of the recorded selections, aligned with Questions.
func (s *Session) Answers() [][]domain.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAnswers(s.answers)
}

// Questions returns a copy of the question set in session order.
func (s *Session) Questions() domain.QuestionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions.Clone()
}

func cloneAnswers(answers [][]domain.Label) [][]domain.Label {
	if answers == nil {
		return nil
	}
	out := make([][]domain.Label, len(answers))
	for i, a := range answers {
		out[i] = append([]domain.Label{}, a...)
	}
	return out
}
