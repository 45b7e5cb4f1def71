package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/zhumataybara/quiz-app/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// RevealedAnswer is one answer's scoring outcome, applied during RevealRound.
type RevealedAnswer struct {
	AnswerID     string
	IsCorrect    bool
	PointsEarned int
}

// RevealWrite is the full set of writes for one round reveal. Implementations
// must apply it atomically: either every answer update, score increment and
// state change lands, or none of them do.
type RevealWrite struct {
	RoundID string
	Answers []RevealedAnswer
	// ScoreIncrements maps player id to the summed points earned this round.
	ScoreIncrements map[string]int
	// FinishGameID, when non-empty, marks the game FINISHED in the same
	// transaction (set when the revealed round is the last one).
	FinishGameID string
}

// Store is the persistence collaborator consumed by the session engine. Game,
// round and question definitions are authored elsewhere; the engine reads them
// and writes live-session state through this interface.
type Store interface {
	// GameByID loads the full game aggregate: rounds ordered by index,
	// questions with accepted answers and current answers, and players.
	GameByID(ctx context.Context, id string) (*models.Game, error)
	// GameIDByRoomCode resolves a join code (case-insensitive) to a game id.
	GameIDByRoomCode(ctx context.Context, code string) (string, error)

	CreatePlayer(ctx context.Context, player *models.Player) error
	UpdatePlayer(ctx context.Context, player *models.Player) error
	UpsertAnswer(ctx context.Context, answer *models.Answer) error

	UpdateRoundState(ctx context.Context, roundID string, state models.RoundState) error
	// ActivateRound sets the round ACTIVE and the game ACTIVE with this round
	// as its current round, in one transaction.
	ActivateRound(ctx context.Context, gameID, roundID string) error
	// RevealRound applies a reveal atomically. See RevealWrite.
	RevealRound(ctx context.Context, write RevealWrite) error
	// ResetGame atomically returns a game to LOBBY: rounds back to WAITING,
	// all answers and players deleted, current round cleared.
	ResetGame(ctx context.Context, gameID string) error
}

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// GenerateRoomCode returns a human-typeable join code in the ABC123 format.
// Uniqueness among active games is the caller's responsibility (retry on
// collision).
func GenerateRoomCode() string {
	code := make([]byte, 6)
	for i := 0; i < 3; i++ {
		code[i] = codeLetters[randomIndex(len(codeLetters))]
	}
	for i := 3; i < 6; i++ {
		code[i] = codeDigits[randomIndex(len(codeDigits))]
	}
	return string(code)
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		return 0
	}
	return int(v.Int64())
}
