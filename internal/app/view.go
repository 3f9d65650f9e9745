package app

import (
	"errors"

	"sheet-quiz/internal/domain"
)

// ViewModel is everything a presenter needs to draw the current screen.
type ViewModel struct {
	Screen       domain.Screen `json:"screen"`
	Loading      bool          `json:"loading,omitempty"`
	Name         string        `json:"name,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	Question     *QuestionView `json:"question,omitempty"`
	Result       *ResultView   `json:"result,omitempty"`
	Review       *ReviewView   `json:"review,omitempty"`
}

// QuestionView is the question currently on screen.
type QuestionView struct {
	Number  int             `json:"number"`
	Total   int             `json:"total"`
	Text    string          `json:"text"`
	Options []domain.Option `json:"options"`
	Action  string          `json:"action"` // "Next" or "Submit"
}

// ResultView is the final score.
type ResultView struct {
	Score int    `json:"score"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

// View projects the session into a ViewModel.
func (s *Session) View() ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	vm := ViewModel{Screen: s.screen, Loading: s.loading, Name: s.name}
	switch s.screen {
	case domain.ScreenInstructions:
		vm.Instructions = s.opts.Instructions
	case domain.ScreenQuestion:
		q := s.questions[s.current]
		action := "Next"
		if s.current == len(s.questions)-1 {
			action = "Submit"
		}
		vm.Question = &QuestionView{
			Number:  s.current + 1,
			Total:   len(s.questions),
			Text:    q.Text,
			Options: append([]domain.Option(nil), q.Options...),
			Action:  action,
		}
	case domain.ScreenResult, domain.ScreenReview:
		vm.Result = &ResultView{Score: s.score, Total: len(s.questions), Text: ScoreText(s.score, len(s.questions))}
		if s.screen == domain.ScreenReview {
			review := Review(s.questions, s.answers, s.score, s.opts.Policy)
			vm.Review = &review
		}
	}
	return vm
}

// UserMessage turns a session error into the text shown to the participant.
func UserMessage(err error) string {
	var taken *domain.AlreadyTakenError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrBlankIdentity):
		return "Please enter both name and email."
	case errors.Is(err, domain.ErrNoSelection):
		return "Please select at least one option before continuing."
	case errors.Is(err, domain.ErrUnknownOption):
		return "That option is not part of this question."
	case errors.Is(err, domain.ErrEmptySet):
		return "No questions found in the question sheet."
	case errors.Is(err, domain.ErrTransport):
		return "Could not connect to the question server. Check the endpoint URL."
	case errors.Is(err, domain.ErrAttemptLimit):
		return "You have used all your attempts for this quiz."
	case errors.As(err, &taken):
		if taken.Prior.Score != nil && taken.Prior.Total != nil {
			return "You have already taken this quiz. Your score: " + ScoreText(*taken.Prior.Score, *taken.Prior.Total)
		}
		return "You have already taken this quiz."
	case errors.Is(err, domain.ErrBusy):
		return "Questions are still loading, please wait."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "That action is not available right now."
	default:
		return err.Error()
	}
}
