package models

import (
	"time"
)

// Player survives disconnects: the connection handle is rebound on reconnect
// and the record is only deleted by a full game reset.
type Player struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	GameID       string    `json:"game_id" gorm:"not null;index"`
	Nickname     string    `json:"nickname" gorm:"not null"`
	ConnectionID string    `json:"-" gorm:"index"`
	IsConnected  bool      `json:"is_connected" gorm:"not null;default:false"`
	TotalScore   int       `json:"total_score" gorm:"not null;default:0"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	JoinedAt     time.Time `json:"joined_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:PlayerID"`
}
