package models

import (
	"time"
)

type Question struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	RoundID    string    `json:"round_id" gorm:"not null;index"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index" gorm:"not null"`
	Points     int       `json:"points" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relationships
	AcceptedAnswers []AcceptedAnswer `json:"accepted_answers,omitempty" gorm:"foreignKey:QuestionID"`
	Answers         []Answer         `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}
