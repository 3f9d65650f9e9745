package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sheet-quiz/internal/app"
	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/infra/memory"
)

func TestScenarioSingleCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	reporter := &recordingReporter{}
	session := newTestSession(t, oneQuestion("A"), reporter, app.Options{})

	mustLogin(t, session)
	if err := session.Answer(ctx, labels("A")); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if session.Screen() != domain.ScreenResult {
		t.Fatalf("expected result screen, got %s", session.Screen())
	}
	if session.Score() != 1 {
		t.Fatalf("expected score 1, got %d", session.Score())
	}
	if vm := session.View(); vm.Result == nil || vm.Result.Text != "1 / 1" {
		t.Fatalf("expected result text 1 / 1, got %+v", vm.Result)
	}

	if err := session.ShowReview(); err != nil {
		t.Fatalf("show review: %v", err)
	}
	review := session.View().Review
	if review == nil {
		t.Fatalf("expected review on review screen")
	}
	if got := review.Items[0].Options[0].Class; got != domain.CorrectAndPicked {
		t.Fatalf("expected A correct-and-picked, got %s", got)
	}
}

func TestScenarioSubsetCredit(t *testing.T) {
	tests := []struct {
		policy domain.ScoringPolicy
		want   int
	}{
		{domain.PolicyAnyCorrectNoWrong, 1},
		{domain.PolicyExactMatch, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			session := newTestSession(t, oneQuestion("A", "B"), &recordingReporter{}, app.Options{Policy: tt.policy})
			mustLogin(t, session)
			if err := session.Answer(context.Background(), labels("A")); err != nil {
				t.Fatalf("answer: %v", err)
			}
			if session.Score() != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, session.Score())
			}
		})
	}
}

func TestScenarioEmptySelectionBlocked(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, threeQuestions(), &recordingReporter{}, app.Options{})
	mustLogin(t, session)

	if err := session.Answer(ctx, labels("A")); err != nil {
		t.Fatalf("answer: %v", err)
	}
	for _, empty := range [][]domain.Label{nil, {}, labels(" ")} {
		err := session.Answer(ctx, empty)
		if !errors.Is(err, domain.ErrNoSelection) || !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected no-selection validation error, got %v", err)
		}
	}
	if session.CurrentIndex() != 1 || len(session.Answers()) != 1 {
		t.Fatalf("empty selection changed state: index=%d answers=%v", session.CurrentIndex(), session.Answers())
	}
}

func TestScenarioAttemptLimitBlocksLogin(t *testing.T) {
	attempts := memory.NewAttemptStore()
	attempts.Seed("ada@example.com", 2)
	source := &countingSource{questions: oneQuestion("A")}
	session := app.NewSession(app.Deps{Questions: source, Attempts: attempts}, app.Options{MaxAttempts: app.DefaultMaxAttempts})

	err := session.Login(context.Background(), "Ada", "ada@example.com")
	if !errors.Is(err, domain.ErrAttemptLimit) {
		t.Fatalf("expected attempt limit error, got %v", err)
	}
	if session.Screen() != domain.ScreenLogin {
		t.Fatalf("expected to stay on login, got %s", session.Screen())
	}
	if source.calls != 0 {
		t.Fatalf("expected no fetch for a blocked participant, got %d", source.calls)
	}
}

func TestAttemptCountedWhenLoopStarts(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	session := app.NewSession(
		app.Deps{Questions: memory.NewStaticQuestionSource(oneQuestion("A")), Attempts: attempts},
		app.Options{MaxAttempts: 2, Instructions: "Answer honestly."},
	)

	mustLogin(t, session)
	if session.Screen() != domain.ScreenInstructions {
		t.Fatalf("expected instructions screen, got %s", session.Screen())
	}
	if n, _ := attempts.Attempts(ctx, "ada@example.com"); n != 0 {
		t.Fatalf("login alone must not count an attempt, got %d", n)
	}
	if vm := session.View(); vm.Instructions != "Answer honestly." {
		t.Fatalf("expected instructions in view, got %q", vm.Instructions)
	}

	if err := session.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if n, _ := attempts.Attempts(ctx, "ada@example.com"); n != 1 {
		t.Fatalf("expected 1 attempt after begin, got %d", n)
	}

	session.Restart()
	mustLogin(t, session)
	_ = session.Begin(ctx)
	session.Restart()
	if err := session.Login(ctx, "Ada", "ada@example.com"); !errors.Is(err, domain.ErrAttemptLimit) {
		t.Fatalf("expected third login to be blocked, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	session := newTestSession(t, oneQuestion("A"), &recordingReporter{}, app.Options{})
	for _, in := range [][2]string{{"", "a@b.c"}, {"Ada", ""}, {"  ", " \t"}} {
		if err := session.Login(context.Background(), in[0], in[1]); !errors.Is(err, domain.ErrBlankIdentity) {
			t.Fatalf("login(%q,%q): expected blank identity error, got %v", in[0], in[1], err)
		}
	}
	if session.Screen() != domain.ScreenLogin {
		t.Fatalf("expected login screen, got %s", session.Screen())
	}
}

func TestFetchFailuresStayOnLogin(t *testing.T) {
	tests := []struct {
		name string
		err  error
		set  domain.QuestionSet
		want error
	}{
		{"transport", fmt.Errorf("dial: %w", domain.ErrTransport), nil, domain.ErrTransport},
		{"empty", nil, domain.QuestionSet{}, domain.ErrEmptySet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &countingSource{questions: tt.set, err: tt.err}
			session := app.NewSession(app.Deps{Questions: source}, app.Options{})
			err := session.Login(context.Background(), "Ada", "ada@example.com")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			vm := session.View()
			if vm.Screen != domain.ScreenLogin || vm.Name != "" || vm.Loading {
				t.Fatalf("expected untouched login view, got %+v", vm)
			}
			if app.UserMessage(err) == "" {
				t.Fatalf("expected a user message for %v", err)
			}
		})
	}
}

func TestAnswersStayInLockStep(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, threeQuestions(), &recordingReporter{}, app.Options{Shuffle: true})
	mustLogin(t, session)

	for i := 0; i < 3; i++ {
		if session.CurrentIndex() != i || len(session.Answers()) != i {
			t.Fatalf("before answer %d: index=%d answers=%d", i, session.CurrentIndex(), len(session.Answers()))
		}
		if err := session.Answer(ctx, labels("C", "A")); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if session.CurrentIndex() != i+1 || len(session.Answers()) != i+1 {
			t.Fatalf("after answer %d: index=%d answers=%d", i, session.CurrentIndex(), len(session.Answers()))
		}
	}
	for _, a := range session.Answers() {
		if len(a) != 2 || a[0] != "A" || a[1] != "C" {
			t.Fatalf("expected answers recorded in option order, got %v", a)
		}
	}
}

func TestQuestionViewAction(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, threeQuestions(), &recordingReporter{}, app.Options{})
	mustLogin(t, session)

	wants := []string{"Next", "Next", "Submit"}
	for i, want := range wants {
		vm := session.View()
		if vm.Question == nil || vm.Question.Number != i+1 || vm.Question.Total != 3 || vm.Question.Action != want {
			t.Fatalf("question %d: unexpected view %+v", i, vm.Question)
		}
		_ = session.Answer(ctx, labels("A"))
	}
}

func TestUnknownOptionRejected(t *testing.T) {
	session := newTestSession(t, oneQuestion("A"), &recordingReporter{}, app.Options{})
	mustLogin(t, session)

	err := session.Answer(context.Background(), labels("A", "Z"))
	if !errors.Is(err, domain.ErrUnknownOption) {
		t.Fatalf("expected unknown option error, got %v", err)
	}
	if session.CurrentIndex() != 0 {
		t.Fatalf("expected index unchanged")
	}
}

func TestReporterReceivesShuffledAlignment(t *testing.T) {
	ctx := context.Background()
	reporter := &recordingReporter{}
	session := newTestSession(t, threeQuestions(), reporter, app.Options{Shuffle: true, ReportAnswers: true})
	mustLogin(t, session)

	for i := 0; i < 3; i++ {
		_ = session.Answer(ctx, labels("A"))
	}

	payloads := reporter.all()
	if len(payloads) != 1 {
		t.Fatalf("expected one submission, got %d", len(payloads))
	}
	p := payloads[0]
	if p.Action != domain.ActionSaveResult || p.Name != "Ada" || p.Email != "ada@example.com" || p.Total != 3 {
		t.Fatalf("unexpected payload header: %+v", p)
	}
	questions := session.Questions()
	for i, q := range questions {
		if fmt.Sprint(p.CorrectAnswers[i]) != fmt.Sprint(q.Correct) {
			t.Fatalf("correct answers not aligned with session order at %d: %v vs %v", i, p.CorrectAnswers[i], q.Correct)
		}
	}
	if p.Score != session.Score() {
		t.Fatalf("payload score %d, session score %d", p.Score, session.Score())
	}
}

func TestPayloadOmitsAnswersWhenDisabled(t *testing.T) {
	reporter := &recordingReporter{}
	session := newTestSession(t, oneQuestion("A"), reporter, app.Options{})
	mustLogin(t, session)
	_ = session.Answer(context.Background(), labels("A"))

	p := reporter.all()[0]
	if p.Answers != nil || p.CorrectAnswers != nil {
		t.Fatalf("expected no answer detail, got %+v", p)
	}
}

func TestSubmitDoesNotWaitForReporter(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	reporter := app.NewReporter(nil, nil, sink)
	session := app.NewSession(app.Deps{Questions: memory.NewStaticQuestionSource(oneQuestion("A")), Reporter: reporter}, app.Options{})
	mustLogin(t, session)

	done := make(chan error, 1)
	go func() { done <- session.Answer(context.Background(), labels("B")) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("answer: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("answer blocked on result delivery")
	}
	if err := session.ShowReview(); err != nil {
		t.Fatalf("review while delivery pending: %v", err)
	}
	close(sink.release)
	reporter.Wait()
}

func TestReviewToggle(t *testing.T) {
	session := newTestSession(t, oneQuestion("A"), &recordingReporter{}, app.Options{})
	if err := session.ShowReview(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected review to be unavailable on login, got %v", err)
	}
	mustLogin(t, session)
	_ = session.Answer(context.Background(), labels("A"))

	for i := 0; i < 2; i++ {
		if err := session.ShowReview(); err != nil {
			t.Fatalf("show review: %v", err)
		}
		if session.Screen() != domain.ScreenReview {
			t.Fatalf("expected review screen")
		}
	}
	if err := session.HideReview(); err != nil {
		t.Fatalf("hide review: %v", err)
	}
	if vm := session.View(); vm.Screen != domain.ScreenResult || vm.Review != nil {
		t.Fatalf("expected plain result view, got %+v", vm)
	}
}

func TestRestartDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, threeQuestions(), &recordingReporter{}, app.Options{})
	mustLogin(t, session)
	_ = session.Answer(ctx, labels("A"))

	session.Restart()

	vm := session.View()
	if vm.Screen != domain.ScreenLogin || vm.Name != "" {
		t.Fatalf("expected fresh login view, got %+v", vm)
	}
	if session.Score() != 0 || session.CurrentIndex() != 0 || session.Answers() != nil || session.Questions() != nil {
		t.Fatalf("restart kept state")
	}
	if err := session.Answer(ctx, labels("A")); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected answer to be rejected after restart, got %v", err)
	}
	mustLogin(t, session)
	if session.Screen() != domain.ScreenQuestion {
		t.Fatalf("expected to be able to start again")
	}
}

func TestLoginIsSingleFireWhileFetching(t *testing.T) {
	source := &gatedSource{questions: oneQuestion("A"), started: make(chan struct{}), release: make(chan struct{})}
	session := app.NewSession(app.Deps{Questions: source}, app.Options{})

	done := make(chan error, 1)
	go func() { done <- session.Login(context.Background(), "Ada", "ada@example.com") }()
	<-source.started

	if err := session.Login(context.Background(), "Ada", "ada@example.com"); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if !session.View().Loading {
		t.Fatalf("expected loading view during fetch")
	}

	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Screen() != domain.ScreenQuestion {
		t.Fatalf("expected question screen, got %s", session.Screen())
	}
}

func TestRestartAbandonsInFlightFetch(t *testing.T) {
	source := &gatedSource{questions: oneQuestion("A"), started: make(chan struct{}), release: make(chan struct{})}
	session := app.NewSession(app.Deps{Questions: source}, app.Options{})

	done := make(chan error, 1)
	go func() { done <- session.Login(context.Background(), "Ada", "ada@example.com") }()
	<-source.started
	session.Restart()
	close(source.release)

	if err := <-done; !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected abandoned login, got %v", err)
	}
	if session.Screen() != domain.ScreenLogin || session.Questions() != nil {
		t.Fatalf("late fetch result leaked into restarted session")
	}
}

func TestCheckEmailBlocksRetake(t *testing.T) {
	score, total := 3, 5
	emails := &fakeEmails{prior: domain.PriorResult{Exists: true, Score: &score, Total: &total}}
	session := app.NewSession(
		app.Deps{Questions: memory.NewStaticQuestionSource(oneQuestion("A")), Emails: emails},
		app.Options{CheckEmail: true},
	)

	err := session.Login(context.Background(), "Ada", "ada@example.com")
	if !errors.Is(err, domain.ErrAlreadyTaken) {
		t.Fatalf("expected already taken, got %v", err)
	}
	if msg := app.UserMessage(err); msg != "You have already taken this quiz. Your score: 3 / 5" {
		t.Fatalf("unexpected message %q", msg)
	}
	if emails.email != "ada@example.com" {
		t.Fatalf("expected lookup for trimmed email, got %q", emails.email)
	}
}

func mustLogin(t *testing.T, session *app.Session) {
	t.Helper()
	if err := session.Login(context.Background(), " Ada ", " ada@example.com "); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func newTestSession(t *testing.T, questions domain.QuestionSet, reporter app.ResultReporter, opts app.Options) *app.Session {
	t.Helper()
	return app.NewSession(app.Deps{
		Questions: memory.NewStaticQuestionSource(questions),
		Reporter:  reporter,
	}, opts)
}

func oneQuestion(correct ...string) domain.QuestionSet {
	return domain.QuestionSet{{
		Text:    "Which letters are vowels?",
		Options: []domain.Option{{Label: "A", Text: "A"}, {Label: "B", Text: "B"}, {Label: "C", Text: "C"}},
		Correct: labels(correct...),
	}}
}

func threeQuestions() domain.QuestionSet {
	set := make(domain.QuestionSet, 0, 3)
	for i, correct := range [][]string{{"A"}, {"B"}, {"A", "C"}} {
		set = append(set, domain.Question{
			Text:    fmt.Sprintf("Question %d", i+1),
			Options: []domain.Option{{Label: "A", Text: "one"}, {Label: "B", Text: "two"}, {Label: "C", Text: "three"}},
			Correct: labels(correct...),
		})
	}
	return set
}

type recordingReporter struct {
	mu       sync.Mutex
	payloads []domain.ResultPayload
}

func (r *recordingReporter) Submit(p domain.ResultPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recordingReporter) all() []domain.ResultPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ResultPayload(nil), r.payloads...)
}

type countingSource struct {
	questions domain.QuestionSet
	err       error
	calls     int
}

func (s *countingSource) FetchQuestions(context.Context) (domain.QuestionSet, error) {
	s.calls++
	return s.questions.Clone(), s.err
}

type gatedSource struct {
	questions domain.QuestionSet
	started   chan struct{}
	release   chan struct{}
}

func (s *gatedSource) FetchQuestions(context.Context) (domain.QuestionSet, error) {
	close(s.started)
	<-s.release
	return s.questions.Clone(), nil
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) SaveResult(context.Context, domain.ResultPayload) error {
	<-s.release
	return nil
}

type fakeEmails struct {
	prior domain.PriorResult
	email string
}

func (f *fakeEmails) CheckEmail(_ context.Context, email string) (domain.PriorResult, error) {
	f.email = email
	return f.prior, nil
}
