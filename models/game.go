package models

import (
	"time"
)

type GameStatus string

const (
	GameStatusLobby    GameStatus = "LOBBY"
	GameStatusActive   GameStatus = "ACTIVE"
	GameStatusPaused   GameStatus = "PAUSED"
	GameStatusFinished GameStatus = "FINISHED"
)

type Game struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	Title          string     `json:"title" gorm:"not null"`
	RoomCode       string     `json:"room_code" gorm:"uniqueIndex;not null"`
	Status         GameStatus `json:"status" gorm:"not null;default:'LOBBY'"`
	CurrentRoundID *string    `json:"current_round_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships
	Rounds  []Round  `json:"rounds,omitempty" gorm:"foreignKey:GameID"`
	Players []Player `json:"players,omitempty" gorm:"foreignKey:GameID"`
}

// CurrentRound resolves the active round pointer against the rounds list.
func (g *Game) CurrentRound() *Round {
	if g.CurrentRoundID == nil {
		return nil
	}
	for i := range g.Rounds {
		if g.Rounds[i].ID == *g.CurrentRoundID {
			return &g.Rounds[i]
		}
	}
	return nil
}
