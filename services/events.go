package services

import (
	"github.com/zhumataybara/quiz-app/models"
)

// Inbound websocket event types.
const (
	EventJoinGame        = "join_game"
	EventReconnectPlayer = "reconnect_player"
	EventSubmitAnswer    = "submit_answer"
	EventHeartbeat       = "heartbeat"
	EventStartRound      = "admin:start_round"
	EventLockRound       = "admin:lock_round"
	EventRevealAnswers   = "admin:reveal_answers"
	EventResetGame       = "admin:reset_game"
	EventAdminJoinRoom   = "admin:join_room"
	EventAdminLeaveRoom  = "admin:leave_room"
)

// Outbound websocket event types.
const (
	EventPlayerJoined    = "player_joined"
	EventGameState       = "game_state"
	EventAdminGameState  = "admin_game_state"
	EventRoundStarted    = "round_started"
	EventRoundLocked     = "round_locked"
	EventAnswersRevealed = "answers_revealed"
	EventAnswerSubmitted = "answer_submitted"
	EventPlayerLeft      = "player_left"
	EventGameReset       = "game_reset"
	EventError           = "error"
)

// Broadcaster is the outbound side of the transport, implemented by the Hub.
// ToRoom reaches every subscriber of the room (players, screens and
// organizers); ToOrganizers reaches only the organizer channel;
// ToConnection targets a single connection.
type Broadcaster interface {
	ToConnection(connectionID, event string, payload interface{})
	ToOrganizers(gameID, event string, payload interface{})
	ToRoom(gameID, event string, payload interface{})
}

type PlayerJoinedPayload struct {
	Player *models.Player `json:"player"`
}

type RoundStartedPayload struct {
	RoundID      string `json:"roundId"`
	RoundNumber  int    `json:"roundNumber"`
	TotalRounds  int    `json:"totalRounds"`
	RoundTitle   string `json:"roundTitle"`
	PlayerScore  int    `json:"playerScore"`
	PlayerRank   int    `json:"playerRank"`
	TotalPlayers int    `json:"totalPlayers"`
}

type RoundLockedPayload struct {
	RoundID string `json:"roundId"`
}

// QuestionResult is one line of a player's personalized round breakdown.
type QuestionResult struct {
	QuestionTitle string  `json:"questionTitle"`
	YourAnswer    *string `json:"yourAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
	IsCorrect     bool    `json:"isCorrect"`
	Points        int     `json:"points"`
	MaxPoints     int     `json:"maxPoints"`
}

type AnswersRevealedPayload struct {
	RoundID       string             `json:"roundId"`
	RoundNumber   int                `json:"roundNumber"`
	TotalRounds   int                `json:"totalRounds"`
	RoundTitle    string             `json:"roundTitle"`
	Questions     []QuestionResult   `json:"questions"`
	TotalEarned   int                `json:"totalEarned"`
	TotalPossible int                `json:"totalPossible"`
	CurrentRank   int                `json:"currentRank"`
	RankChange    int                `json:"rankChange"`
	TotalScore    int                `json:"totalScore"`
	TotalPlayers  int                `json:"totalPlayers"`
	IsLastRound   bool               `json:"isLastRound"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
}

type AnswerSubmittedPayload struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	Nickname   string `json:"nickname"`
	IsUpdate   bool   `json:"isUpdate"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
