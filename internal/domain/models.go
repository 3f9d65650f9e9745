package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Label identifies a rendered option: "A", "B", ... "Z", "AA", "AB", ...
type Label string

// LabelAt returns the label of the k-th rendered option (zero based).
func LabelAt(k int) Label {
	var buf []byte
	for n := k + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return Label(buf)
}

// ParseLabel trims and upper-cases user or endpoint supplied label text.
func ParseLabel(raw string) Label {
	return Label(strings.ToUpper(strings.TrimSpace(raw)))
}

// Option is a labelled, non-blank answer choice.
type Option struct {
	Label Label  `json:"label"`
	Text  string `json:"text"`
}

// Question models a multiple-choice question with one or more correct labels.
type Question struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
	Correct []Label  `json:"correct"`
}

// HasOption reports whether label names one of the rendered options.
func (q Question) HasOption(label Label) bool {
	for _, opt := range q.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// IsCorrect reports whether label is in the correct set.
func (q Question) IsCorrect(label Label) bool {
	return containsLabel(q.Correct, label)
}

// QuestionSet is the ordered list of questions one session works through.
type QuestionSet []Question

// Clone deep-copies the set so callers can reorder it freely.
func (s QuestionSet) Clone() QuestionSet {
	if s == nil {
		return nil
	}
	out := make(QuestionSet, len(s))
	for i, q := range s {
		out[i] = Question{
			Text:    q.Text,
			Options: append([]Option(nil), q.Options...),
			Correct: append([]Label(nil), q.Correct...),
		}
	}
	return out
}

// CorrectAnswers returns the correct label sets aligned with the set order.
func (s QuestionSet) CorrectAnswers() [][]Label {
	out := make([][]Label, len(s))
	for i, q := range s {
		out[i] = append([]Label{}, q.Correct...)
	}
	return out
}

// Cell is a spreadsheet value; numbers and booleans are kept as their text form.
type Cell string

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Cell(string(data))
	return nil
}

// RawQuestion is the row shape served by the spreadsheet endpoint.
type RawQuestion struct {
	Question Cell   `json:"question"`
	Options  []Cell `json:"options"`
	Correct  []Cell `json:"correct"`
}

// Normalize assigns labels to the non-blank options by rendered position and
// cleans up the correct labels.
func (r RawQuestion) Normalize() Question {
	q := Question{Text: strings.TrimSpace(string(r.Question))}
	for _, raw := range r.Options {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}
		q.Options = append(q.Options, Option{Label: LabelAt(len(q.Options)), Text: text})
	}
	for _, raw := range r.Correct {
		label := ParseLabel(string(raw))
		if label == "" || containsLabel(q.Correct, label) {
			continue
		}
		q.Correct = append(q.Correct, label)
	}
	return q
}

// NormalizeQuestions converts endpoint rows, dropping rows with no renderable option.
func NormalizeQuestions(rows []RawQuestion) QuestionSet {
	set := make(QuestionSet, 0, len(rows))
	for _, row := range rows {
		q := row.Normalize()
		if len(q.Options) == 0 {
			continue
		}
		set = append(set, q)
	}
	return set
}

// ScoringPolicy selects how a selection is judged against the correct set.
type ScoringPolicy string

const (
	// PolicyAnyCorrectNoWrong credits any non-empty subset of the correct set.
	PolicyAnyCorrectNoWrong ScoringPolicy = "any-correct-no-wrong"
	// PolicyExactMatch credits only the exact correct set.
	PolicyExactMatch ScoringPolicy = "exact-match"
)

// Valid reports whether p is a known policy.
func (p ScoringPolicy) Valid() bool {
	return p == PolicyAnyCorrectNoWrong || p == PolicyExactMatch
}

// Screen is the state of a quiz session.
type Screen string

const (
	ScreenLogin        Screen = "login"
	ScreenInstructions Screen = "instructions"
	ScreenQuestion     Screen = "question"
	ScreenResult       Screen = "result"
	ScreenReview       Screen = "review"
)

// Classification describes how one option is shown in the answer review.
type Classification string

const (
	CorrectAndPicked Classification = "correct-and-picked"
	CorrectNotPicked Classification = "correct-not-picked"
	WrongAndPicked   Classification = "wrong-and-picked"
	NeutralNotPicked Classification = "neutral-not-picked"
)

// ResultPayload is the record posted to the endpoint when a session finishes.
type ResultPayload struct {
	Action         string    `json:"action"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Score          int       `json:"score"`
	Total          int       `json:"total"`
	Answers        [][]Label `json:"answers,omitempty"`
	CorrectAnswers [][]Label `json:"correctAnswers,omitempty"`
}

// ActionSaveResult is the action name the endpoint expects for results.
const ActionSaveResult = "saveResult"

// PriorResult is the endpoint's answer to a checkEmail lookup.
type PriorResult struct {
	Exists bool `json:"exists"`
	Score  *int `json:"score,omitempty"`
	Total  *int `json:"total,omitempty"`
}

func containsLabel(labels []Label, label Label) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
