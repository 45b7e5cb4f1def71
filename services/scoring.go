package services

import (
	"github.com/zhumataybara/quiz-app/models"
)

// CheckAnswer reports whether the submitted identifier matches any of the
// question's accepted answers. Matching is exact identifier equality, no text
// comparison. An empty accepted set is a data error upstream and evaluates to
// false.
func CheckAnswer(submittedID int64, accepted []models.AcceptedAnswer) bool {
	for _, a := range accepted {
		if a.ExternalID == submittedID {
			return true
		}
	}
	return false
}
