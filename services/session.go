package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zhumataybara/quiz-app/models"
	"github.com/zhumataybara/quiz-app/store"
)

const (
	// Storage calls never block a room longer than this; on expiry the
	// operation fails cleanly with a coded error.
	storeTimeout = 5 * time.Second
	snapshotTTL  = 2 * time.Hour
)

// Session owns the canonical in-memory state of one live room. Every mutating
// operation serializes through the session mutex, so all events for a room
// are totally ordered; sessions for different rooms never contend. State is
// persisted through the store at each operation boundary, and reveal/reset go
// through the store's transaction primitive.
type Session struct {
	mu    sync.Mutex
	id    string
	store store.Store
	cache *redis.Client
	b     Broadcaster

	game *models.Game
	// ranksAtRoundStart holds each player's leaderboard rank captured when
	// the current round started, used to compute rank deltas at reveal.
	ranksAtRoundStart map[string]int
}

// NewSession loads the game aggregate and builds its session. The cache
// client may be nil (tests, cache outage at startup).
func NewSession(ctx context.Context, gameID string, st store.Store, cache *redis.Client, b Broadcaster) (*Session, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	game, err := st.GameByID(sctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session for game %s: %w", gameID, err)
	}
	return &Session{
		id:                gameID,
		store:             st,
		cache:             cache,
		b:                 b,
		game:              game,
		ranksAtRoundStart: make(map[string]int),
	}, nil
}

func (s *Session) GameID() string {
	return s.id
}

// Join adds a new player to the room. Nickname collisions are resolved by
// appending the lowest free numeric suffix. Returns the created player and
// the public projection for the joining connection.
func (s *Session) Join(ctx context.Context, connectionID, nickname string) (*models.Player, *GameStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status == models.GameStatusFinished {
		return nil, nil, ErrGameFinished
	}

	now := time.Now()
	player := &models.Player{
		ID:           uuid.NewString(),
		GameID:       s.id,
		Nickname:     s.resolveNickname(nickname),
		ConnectionID: connectionID,
		IsConnected:  true,
		LastSeenAt:   now,
		JoinedAt:     now,
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.CreatePlayer(sctx, player); err != nil {
		return nil, nil, s.infraError(CodeJoinError, "failed to join game", err)
	}
	s.game.Players = append(s.game.Players, *player)

	s.b.ToRoom(s.id, EventPlayerJoined, PlayerJoinedPayload{Player: player})
	log.Printf("Player %q joined game %s", player.Nickname, s.game.RoomCode)
	return player, ProjectPublicState(s.game), nil
}

// Reconnect rebinds an existing player to a new connection and returns the
// current public projection for a full-state resync on that connection only.
func (s *Session) Reconnect(ctx context.Context, connectionID, playerID, gameID string) (*models.Player, *GameStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gameID != s.id {
		return nil, nil, ErrInvalidReconnect
	}
	player := s.findPlayer(playerID)
	if player == nil {
		return nil, nil, ErrInvalidReconnect
	}

	updated := *player
	updated.ConnectionID = connectionID
	updated.IsConnected = true
	updated.LastSeenAt = time.Now()

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.UpdatePlayer(sctx, &updated); err != nil {
		return nil, nil, s.infraError(CodeReconnectError, "failed to reconnect", err)
	}
	player.ConnectionID = updated.ConnectionID
	player.IsConnected = true
	player.LastSeenAt = updated.LastSeenAt

	log.Printf("Player %q reconnected to game %s", player.Nickname, s.game.RoomCode)
	return player, ProjectPublicState(s.game), nil
}

// SubmitAnswer upserts the player's answer for a question while its round is
// ACTIVE. Later submissions overwrite earlier ones. Only organizer
// subscribers are notified; submission content never reaches other players.
func (s *Session) SubmitAnswer(ctx context.Context, playerID, questionID string, externalID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.findPlayer(playerID)
	if player == nil {
		return ErrPlayerNotFound
	}
	question, round := s.findQuestion(questionID)
	if question == nil {
		return ErrQuestionNotFound
	}
	if round.State != models.RoundStateActive {
		return ErrRoundNotActive
	}

	existing := -1
	for i := range question.Answers {
		if question.Answers[i].PlayerID == playerID {
			existing = i
			break
		}
	}
	isUpdate := existing >= 0

	answer := models.Answer{
		ID:            uuid.NewString(),
		PlayerID:      playerID,
		QuestionID:    questionID,
		ExternalID:    externalID,
		SubmittedText: text,
		SubmittedAt:   time.Now(),
	}
	if isUpdate {
		answer.ID = question.Answers[existing].ID
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.UpsertAnswer(sctx, &answer); err != nil {
		return s.infraError(CodeSubmitError, "failed to submit answer", err)
	}

	if isUpdate {
		question.Answers[existing] = answer
	} else {
		question.Answers = append(question.Answers, answer)
	}

	s.b.ToOrganizers(s.id, EventAnswerSubmitted, AnswerSubmittedPayload{
		PlayerID:   playerID,
		QuestionID: questionID,
		Nickname:   player.Nickname,
		IsUpdate:   isUpdate,
	})
	return nil
}

// StartRound activates a WAITING round, makes it the game's current round and
// sends each connected player a personalized transition payload before
// broadcasting the refreshed state to both audiences.
func (s *Session) StartRound(ctx context.Context, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.findRound(roundID)
	if round == nil {
		return ErrRoundNotFound
	}
	if round.State != models.RoundStateWaiting {
		return &GameError{Code: CodeStartRoundError, Message: "round has already been started"}
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.ActivateRound(sctx, s.id, roundID); err != nil {
		return s.infraError(CodeStartRoundError, "failed to start round", err)
	}

	round.State = models.RoundStateActive
	s.game.Status = models.GameStatusActive
	id := roundID
	s.game.CurrentRoundID = &id

	leaderboard := BuildLeaderboard(s.game.Players)
	s.ranksAtRoundStart = make(map[string]int, len(leaderboard))
	for _, entry := range leaderboard {
		s.ranksAtRoundStart[entry.PlayerID] = entry.Rank
	}

	roundNumber := s.roundNumber(roundID)
	for i := range s.game.Players {
		p := &s.game.Players[i]
		if !p.IsConnected || p.ConnectionID == "" {
			continue
		}
		s.b.ToConnection(p.ConnectionID, EventRoundStarted, RoundStartedPayload{
			RoundID:      roundID,
			RoundNumber:  roundNumber,
			TotalRounds:  len(s.game.Rounds),
			RoundTitle:   round.Title,
			PlayerScore:  p.TotalScore,
			PlayerRank:   LeaderboardRank(leaderboard, p.ID),
			TotalPlayers: len(s.game.Players),
		})
	}

	s.broadcastState(ctx)
	log.Printf("Round %s started (round %d/%d) in game %s", roundID, roundNumber, len(s.game.Rounds), s.game.RoomCode)
	return nil
}

// LockRound closes answer intake for an ACTIVE round.
func (s *Session) LockRound(ctx context.Context, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.findRound(roundID)
	if round == nil {
		return ErrRoundNotFound
	}
	if round.State != models.RoundStateActive {
		return &GameError{Code: CodeLockRoundError, Message: "round is not active"}
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.UpdateRoundState(sctx, roundID, models.RoundStateLocked); err != nil {
		return s.infraError(CodeLockRoundError, "failed to lock round", err)
	}
	round.State = models.RoundStateLocked

	s.b.ToRoom(s.id, EventRoundLocked, RoundLockedPayload{RoundID: roundID})
	s.broadcastState(ctx)
	log.Printf("Round %s locked in game %s", roundID, s.game.RoomCode)
	return nil
}

type scoredAnswer struct {
	questionID string
	answerID   string
	playerID   string
	isCorrect  bool
	points     int
}

// RevealAnswers scores every answer of a LOCKED round and applies the answer
// updates, the per-player score increments and the REVEALED transition as one
// atomic transaction. If the transaction fails nothing changes, in storage or
// in memory. After commit each connected player receives a personalized
// result breakdown, then both audiences get the refreshed state.
func (s *Session) RevealAnswers(ctx context.Context, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.findRound(roundID)
	if round == nil {
		return ErrRoundNotFound
	}
	if round.State != models.RoundStateLocked {
		return &GameError{Code: CodeRevealError, Message: "round must be locked before revealing answers"}
	}

	var scored []scoredAnswer
	increments := make(map[string]int)
	for qi := range round.Questions {
		question := &round.Questions[qi]
		if len(question.AcceptedAnswers) == 0 {
			log.Printf("INVARIANT VIOLATION: question %s has no accepted answers; scoring its submissions as incorrect", question.ID)
		}
		for ai := range question.Answers {
			answer := &question.Answers[ai]
			isCorrect := CheckAnswer(answer.ExternalID, question.AcceptedAnswers)
			points := 0
			if isCorrect {
				points = question.Points
				increments[answer.PlayerID] += points
			}
			scored = append(scored, scoredAnswer{
				questionID: question.ID,
				answerID:   answer.ID,
				playerID:   answer.PlayerID,
				isCorrect:  isCorrect,
				points:     points,
			})
		}
	}

	roundNumber := s.roundNumber(roundID)
	isLastRound := roundNumber == len(s.game.Rounds)

	write := store.RevealWrite{
		RoundID:         roundID,
		Answers:         make([]store.RevealedAnswer, len(scored)),
		ScoreIncrements: increments,
	}
	for i, sa := range scored {
		write.Answers[i] = store.RevealedAnswer{
			AnswerID:     sa.answerID,
			IsCorrect:    sa.isCorrect,
			PointsEarned: sa.points,
		}
	}
	if isLastRound {
		write.FinishGameID = s.id
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.RevealRound(sctx, write); err != nil {
		return s.infraError(CodeRevealError, "failed to reveal answers", err)
	}

	// Transaction committed; mirror it in canonical state.
	for _, sa := range scored {
		question, _ := s.findQuestion(sa.questionID)
		for ai := range question.Answers {
			if question.Answers[ai].ID == sa.answerID {
				isCorrect, points := sa.isCorrect, sa.points
				question.Answers[ai].IsCorrect = &isCorrect
				question.Answers[ai].PointsEarned = &points
				break
			}
		}
	}
	for playerID, increment := range increments {
		if p := s.findPlayer(playerID); p != nil {
			p.TotalScore += increment
		}
	}
	round.State = models.RoundStateRevealed
	if isLastRound {
		s.game.Status = models.GameStatusFinished
	}

	leaderboard := BuildLeaderboard(s.game.Players)
	for i := range s.game.Players {
		p := &s.game.Players[i]
		if !p.IsConnected || p.ConnectionID == "" {
			continue
		}
		s.b.ToConnection(p.ConnectionID, EventAnswersRevealed, s.buildRevealPayload(p, round, roundNumber, isLastRound, leaderboard))
	}

	s.broadcastState(ctx)
	log.Printf("Answers revealed for round %s (round %d/%d) in game %s", roundID, roundNumber, len(s.game.Rounds), s.game.RoomCode)
	return nil
}

func (s *Session) buildRevealPayload(p *models.Player, round *models.Round, roundNumber int, isLastRound bool, leaderboard []LeaderboardEntry) AnswersRevealedPayload {
	results := make([]QuestionResult, 0, len(round.Questions))
	totalEarned, totalPossible := 0, 0
	for qi := range round.Questions {
		question := &round.Questions[qi]
		totalPossible += question.Points

		result := QuestionResult{
			QuestionTitle: questionLabel(question),
			CorrectAnswer: correctAnswerLabel(question),
			MaxPoints:     question.Points,
		}
		for ai := range question.Answers {
			answer := &question.Answers[ai]
			if answer.PlayerID != p.ID {
				continue
			}
			text := answer.SubmittedText
			result.YourAnswer = &text
			if answer.IsCorrect != nil {
				result.IsCorrect = *answer.IsCorrect
			}
			if answer.PointsEarned != nil {
				result.Points = *answer.PointsEarned
			}
			break
		}
		totalEarned += result.Points
		results = append(results, result)
	}

	currentRank := LeaderboardRank(leaderboard, p.ID)
	rankChange := 0
	if before, ok := s.ranksAtRoundStart[p.ID]; ok {
		// Positive means the player moved up since the round started.
		rankChange = before - currentRank
	}

	return AnswersRevealedPayload{
		RoundID:       round.ID,
		RoundNumber:   roundNumber,
		TotalRounds:   len(s.game.Rounds),
		RoundTitle:    round.Title,
		Questions:     results,
		TotalEarned:   totalEarned,
		TotalPossible: totalPossible,
		CurrentRank:   currentRank,
		RankChange:    rankChange,
		TotalScore:    p.TotalScore,
		TotalPlayers:  len(s.game.Players),
		IsLastRound:   isLastRound,
		Leaderboard:   leaderboard,
	}
}

// ResetGame destructively returns the room to the lobby: rounds back to
// WAITING, all players and answers deleted, applied as one transaction. A
// distinct reset signal tells clients to discard local session state, then
// the fresh empty state is broadcast.
func (s *Session) ResetGame(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gameID != s.id {
		return ErrGameNotFound
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.ResetGame(sctx, gameID); err != nil {
		return s.infraError(CodeResetError, "failed to reset game", err)
	}

	s.game.Status = models.GameStatusLobby
	s.game.CurrentRoundID = nil
	for ri := range s.game.Rounds {
		s.game.Rounds[ri].State = models.RoundStateWaiting
		for qi := range s.game.Rounds[ri].Questions {
			s.game.Rounds[ri].Questions[qi].Answers = nil
		}
	}
	s.game.Players = nil
	s.ranksAtRoundStart = make(map[string]int)

	s.b.ToRoom(s.id, EventGameReset, struct{}{})
	s.broadcastState(ctx)
	log.Printf("Game %s reset", s.game.RoomCode)
	return nil
}

// Heartbeat refreshes the player's last-seen timestamp. Advisory only: no
// broadcast, and absence of heartbeats never forces a disconnect.
func (s *Session) Heartbeat(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.findPlayer(playerID)
	if player == nil {
		return ErrPlayerNotFound
	}
	player.LastSeenAt = time.Now()

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.UpdatePlayer(sctx, player); err != nil {
		log.Printf("heartbeat persist failed for player %s: %v", playerID, err)
	}
	return nil
}

// Disconnect marks the player bound to a dropped connection as disconnected.
// The player record survives for reconnection; scores and answers are
// untouched. The public room is notified of the departure.
func (s *Session) Disconnect(ctx context.Context, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.findPlayerByConnection(connectionID)
	if player == nil {
		return
	}
	player.IsConnected = false

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.UpdatePlayer(sctx, player); err != nil {
		log.Printf("disconnect persist failed for player %s: %v", player.ID, err)
	}

	s.b.ToRoom(s.id, EventPlayerLeft, PlayerLeftPayload{PlayerID: player.ID, Nickname: player.Nickname})
	log.Printf("Player %q disconnected from game %s", player.Nickname, s.game.RoomCode)
}

// OrganizerState returns the full projection including accepted answers and
// all submissions.
func (s *Session) OrganizerState() *GameStateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProjectOrganizerState(s.game)
}

// PublicState returns the sanitized projection for players and screens.
func (s *Session) PublicState() *GameStateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProjectPublicState(s.game)
}

// SessionInfo is a diagnostic summary of one live room.
type SessionInfo struct {
	GameID         string            `json:"gameId"`
	RoomCode       string            `json:"roomCode"`
	Status         models.GameStatus `json:"status"`
	PlayerCount    int               `json:"playerCount"`
	ConnectedCount int               `json:"connectedCount"`
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		GameID:      s.id,
		RoomCode:    s.game.RoomCode,
		Status:      s.game.Status,
		PlayerCount: len(s.game.Players),
	}
	for _, p := range s.game.Players {
		if p.IsConnected {
			info.ConnectedCount++
		}
	}
	return info
}

func (s *Session) broadcastState(ctx context.Context) {
	organizer, public := ProjectState(s.game)
	s.b.ToOrganizers(s.id, EventAdminGameState, organizer)
	s.b.ToRoom(s.id, EventGameState, public)
	s.cacheSnapshot(ctx, public)
}

// cacheSnapshot stores the latest public projection in redis so HTTP reads
// and restarts see recent state. Best-effort: cache failures are logged and
// never fail the operation.
func (s *Session) cacheSnapshot(ctx context.Context, public *GameStateView) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(public)
	if err != nil {
		log.Printf("Error marshaling state snapshot for game %s: %v", s.id, err)
		return
	}
	if err := s.cache.Set(ctx, "game:"+s.id, data, snapshotTTL).Err(); err != nil {
		log.Printf("Failed to cache state snapshot for game %s: %v", s.id, err)
	}
}

// resolveNickname appends the lowest free numeric suffix when the requested
// nickname is already taken: "Alex" -> "Alex 1" -> "Alex 2".
func (s *Session) resolveNickname(nickname string) string {
	taken := make(map[string]bool, len(s.game.Players))
	for _, p := range s.game.Players {
		taken[p.Nickname] = true
	}
	if !taken[nickname] {
		return nickname
	}
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s %d", nickname, counter)
		if !taken[candidate] {
			return candidate
		}
	}
}

func (s *Session) findPlayer(playerID string) *models.Player {
	for i := range s.game.Players {
		if s.game.Players[i].ID == playerID {
			return &s.game.Players[i]
		}
	}
	return nil
}

func (s *Session) findPlayerByConnection(connectionID string) *models.Player {
	for i := range s.game.Players {
		if s.game.Players[i].ConnectionID == connectionID && s.game.Players[i].IsConnected {
			return &s.game.Players[i]
		}
	}
	return nil
}

func (s *Session) findRound(roundID string) *models.Round {
	for i := range s.game.Rounds {
		if s.game.Rounds[i].ID == roundID {
			return &s.game.Rounds[i]
		}
	}
	return nil
}

func (s *Session) findQuestion(questionID string) (*models.Question, *models.Round) {
	for ri := range s.game.Rounds {
		round := &s.game.Rounds[ri]
		for qi := range round.Questions {
			if round.Questions[qi].ID == questionID {
				return &round.Questions[qi], round
			}
		}
	}
	return nil, nil
}

// roundNumber is the 1-based position of the round in play order.
func (s *Session) roundNumber(roundID string) int {
	for i := range s.game.Rounds {
		if s.game.Rounds[i].ID == roundID {
			return i + 1
		}
	}
	return 0
}

func questionLabel(q *models.Question) string {
	if q.Title != "" {
		return q.Title
	}
	if len(q.AcceptedAnswers) > 0 {
		return q.AcceptedAnswers[0].Title
	}
	return "Untitled"
}

// correctAnswerLabel picks the display label for "the correct answer". The
// full accepted set stays visible in the organizer view; this is only the
// headline shown in result breakdowns.
func correctAnswerLabel(q *models.Question) string {
	if len(q.AcceptedAnswers) > 0 {
		return q.AcceptedAnswers[0].Title
	}
	return "Unknown"
}

func (s *Session) infraError(code, message string, err error) *GameError {
	log.Printf("%s in game %s: %v", code, s.id, err)
	return &GameError{Code: code, Message: message}
}
