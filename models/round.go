package models

import (
	"time"
)

type RoundState string

const (
	RoundStateWaiting  RoundState = "WAITING"
	RoundStateActive   RoundState = "ACTIVE"
	RoundStateLocked   RoundState = "LOCKED"
	RoundStateRevealed RoundState = "REVEALED"
)

type Round struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	GameID     string     `json:"game_id" gorm:"not null;index"`
	Title      string     `json:"title" gorm:"not null"`
	OrderIndex int        `json:"order_index" gorm:"not null"`
	State      RoundState `json:"state" gorm:"not null;default:'WAITING'"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:RoundID"`
}
