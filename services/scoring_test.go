package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhumataybara/quiz-app/models"
)

func TestCheckAnswer(t *testing.T) {
	accepted := []models.AcceptedAnswer{
		{ExternalID: 42, Title: "The Matrix"},
		{ExternalID: 603, Title: "The Matrix Reloaded"},
	}

	tests := []struct {
		name      string
		submitted int64
		accepted  []models.AcceptedAnswer
		want      bool
	}{
		{"matches first accepted answer", 42, accepted, true},
		{"matches any accepted answer", 603, accepted, true},
		{"no match", 99, accepted, false},
		{"empty accepted set evaluates to false", 42, nil, false},
		{"zero identifier does not match", 0, accepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAnswer(tt.submitted, tt.accepted))
		})
	}
}
