package app

import "sheet-quiz/internal/domain"

// Score reports whether selected earns the point for a question whose correct
// labels are correct. Both arguments are treated as sets.
func Score(policy domain.ScoringPolicy, correct, selected []domain.Label) bool {
	correctSet := labelSet(correct)
	selectedSet := labelSet(selected)
	if len(selectedSet) == 0 {
		return false
	}

	hits := 0
	for label := range selectedSet {
		if _, ok := correctSet[label]; !ok {
			return false
		}
		hits++
	}

	switch policy {
	case domain.PolicyExactMatch:
		return hits == len(correctSet)
	default:
		return hits > 0
	}
}

func labelSet(labels []domain.Label) map[domain.Label]struct{} {
	set := make(map[domain.Label]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}
