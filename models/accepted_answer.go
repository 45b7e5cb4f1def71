package models

import (
	"time"
)

// AcceptedAnswer is one correct identifier for a question, with the display
// metadata the screens need (title, poster). A question always has at least one.
type AcceptedAnswer struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	QuestionID string    `json:"question_id" gorm:"not null;index"`
	ExternalID int64     `json:"external_id" gorm:"not null"`
	Title      string    `json:"title" gorm:"not null"`
	PosterPath string    `json:"poster_path"`
	CreatedAt  time.Time `json:"created_at"`
}
