package models

import (
	"time"
)

// Answer is a player's current submission for one question. There is at most
// one per (player, question); re-submitting while the round is active
// overwrites it. IsCorrect and PointsEarned stay nil until the round is
// revealed.
type Answer struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	PlayerID      string    `json:"player_id" gorm:"not null;uniqueIndex:idx_player_question"`
	QuestionID    string    `json:"question_id" gorm:"not null;uniqueIndex:idx_player_question"`
	ExternalID    int64     `json:"external_id" gorm:"not null"`
	SubmittedText string    `json:"submitted_text"`
	IsCorrect     *bool     `json:"is_correct"`
	PointsEarned  *int      `json:"points_earned"`
	SubmittedAt   time.Time `json:"submitted_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
