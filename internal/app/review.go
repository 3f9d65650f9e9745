package app

import (
	"fmt"

	"sheet-quiz/internal/domain"
)

// ReviewView is the post-quiz comparison of picks against the correct sets.
type ReviewView struct {
	Summary string       `json:"summary"`
	Score   int          `json:"score"`
	Total   int          `json:"total"`
	Items   []ReviewItem `json:"items"`
}

// ReviewItem is one question of the review.
type ReviewItem struct {
	Number  int            `json:"number"`
	Text    string         `json:"text"`
	Correct bool           `json:"correct"`
	Options []ReviewOption `json:"options"`
}

// ReviewOption is one rendered option with its classification.
type ReviewOption struct {
	Label domain.Label          `json:"label"`
	Text  string                `json:"text"`
	Class domain.Classification `json:"class"`
}

// Review projects a finished session into its answer review. It only reads
// its arguments, so calling it again on the same state yields the same view.
func Review(questions domain.QuestionSet, answers [][]domain.Label, score int, policy domain.ScoringPolicy) ReviewView {
	view := ReviewView{
		Summary: fmt.Sprintf("Your score: %s", ScoreText(score, len(questions))),
		Score:   score,
		Total:   len(questions),
		Items:   make([]ReviewItem, 0, len(questions)),
	}
	for i, q := range questions {
		var picked []domain.Label
		if i < len(answers) {
			picked = answers[i]
		}
		pickedSet := labelSet(picked)

		item := ReviewItem{
			Number:  i + 1,
			Text:    q.Text,
			Correct: Score(policy, q.Correct, picked),
			Options: make([]ReviewOption, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			_, wasPicked := pickedSet[opt.Label]
			item.Options = append(item.Options, ReviewOption{
				Label: opt.Label,
				Text:  opt.Text,
				Class: classify(q.IsCorrect(opt.Label), wasPicked),
			})
		}
		view.Items = append(view.Items, item)
	}
	return view
}

func classify(correct, picked bool) domain.Classification {
	switch {
	case correct && picked:
		return domain.CorrectAndPicked
	case correct:
		return domain.CorrectNotPicked
	case picked:
		return domain.WrongAndPicked
	default:
		return domain.NeutralNotPicked
	}
}

// ScoreText renders a score the way the result screen shows it.
func ScoreText(score, total int) string {
	return fmt.Sprintf("%d / %d", score, total)
}
