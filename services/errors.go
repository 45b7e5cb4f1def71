package services

// GameError is a structured engine error. The code is a stable identifier the
// client keys recovery behavior on: INVALID_RECONNECT, PLAYER_NOT_FOUND and
// GAME_FINISHED make the client discard its local session; everything else is
// shown inline and may be retried.
type GameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *GameError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrGameNotFound     = &GameError{Code: "GAME_NOT_FOUND", Message: "game not found"}
	ErrGameFinished     = &GameError{Code: "GAME_FINISHED", Message: "game is already finished"}
	ErrInvalidReconnect = &GameError{Code: "INVALID_RECONNECT", Message: "invalid reconnect credentials"}
	ErrPlayerNotFound   = &GameError{Code: "PLAYER_NOT_FOUND", Message: "player not found"}
	ErrQuestionNotFound = &GameError{Code: "QUESTION_NOT_FOUND", Message: "question not found"}
	ErrRoundNotFound    = &GameError{Code: "ROUND_NOT_FOUND", Message: "round not found"}
	ErrRoundNotActive   = &GameError{Code: "ROUND_NOT_ACTIVE", Message: "round is not active or already locked"}
)

// Generic codes for transient infrastructure failures, one per operation.
const (
	CodeJoinError       = "JOIN_ERROR"
	CodeReconnectError  = "RECONNECT_ERROR"
	CodeSubmitError     = "SUBMIT_ERROR"
	CodeStartRoundError = "START_ROUND_ERROR"
	CodeLockRoundError  = "LOCK_ROUND_ERROR"
	CodeRevealError     = "REVEAL_ERROR"
	CodeResetError      = "RESET_ERROR"
)
