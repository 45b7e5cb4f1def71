package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/zhumataybara/quiz-app/models"
)

// MemoryStore is an in-process Store used by tests and local development. It
// keeps one aggregate per game and hands out deep copies, so callers can never
// reach the stored state through aliases.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*models.Game

	// ForcedErr, when set, makes the next transactional write (RevealRound,
	// ResetGame, ActivateRound) fail without applying anything. Used to test
	// all-or-nothing behavior.
	ForcedErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*models.Game)}
}

// Add seeds a game aggregate. Rounds and questions are sorted by order index
// to match what the SQL store returns.
func (s *MemoryStore) Add(game *models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(game.Rounds, func(i, j int) bool {
		return game.Rounds[i].OrderIndex < game.Rounds[j].OrderIndex
	})
	for i := range game.Rounds {
		qs := game.Rounds[i].Questions
		sort.SliceStable(qs, func(a, b int) bool {
			return qs[a].OrderIndex < qs[b].OrderIndex
		})
	}
	s.games[game.ID] = game
}

func (s *MemoryStore) GameByID(_ context.Context, id string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(game), nil
}

func (s *MemoryStore) GameIDByRoomCode(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, game := range s.games {
		if strings.EqualFold(game.RoomCode, code) {
			return game.ID, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryStore) CreatePlayer(_ context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[player.GameID]
	if !ok {
		return ErrNotFound
	}
	game.Players = append(game.Players, *player)
	return nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPlayer(player.ID)
	if p == nil {
		return ErrNotFound
	}
	p.ConnectionID = player.ConnectionID
	p.IsConnected = player.IsConnected
	p.LastSeenAt = player.LastSeenAt
	return nil
}

func (s *MemoryStore) UpsertAnswer(_ context.Context, answer *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.findQuestion(answer.QuestionID)
	if q == nil {
		return ErrNotFound
	}
	for i := range q.Answers {
		if q.Answers[i].PlayerID == answer.PlayerID {
			q.Answers[i].ExternalID = answer.ExternalID
			q.Answers[i].SubmittedText = answer.SubmittedText
			q.Answers[i].SubmittedAt = answer.SubmittedAt
			return nil
		}
	}
	q.Answers = append(q.Answers, *answer)
	return nil
}

func (s *MemoryStore) UpdateRoundState(_ context.Context, roundID string, state models.RoundState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRound(roundID)
	if r == nil {
		return ErrNotFound
	}
	r.State = state
	return nil
}

func (s *MemoryStore) ActivateRound(_ context.Context, gameID, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ForcedErr != nil {
		return s.ForcedErr
	}
	game, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	r := s.findRound(roundID)
	if r == nil {
		return ErrNotFound
	}
	r.State = models.RoundStateActive
	id := roundID
	game.CurrentRoundID = &id
	game.Status = models.GameStatusActive
	return nil
}

func (s *MemoryStore) RevealRound(_ context.Context, write RevealWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ForcedErr != nil {
		return s.ForcedErr
	}
	r := s.findRound(write.RoundID)
	if r == nil {
		return ErrNotFound
	}
	for _, ra := range write.Answers {
		a := s.findAnswer(ra.AnswerID)
		if a == nil {
			return ErrNotFound
		}
		isCorrect, points := ra.IsCorrect, ra.PointsEarned
		a.IsCorrect = &isCorrect
		a.PointsEarned = &points
	}
	for playerID, increment := range write.ScoreIncrements {
		p := s.findPlayer(playerID)
		if p == nil {
			return ErrNotFound
		}
		p.TotalScore += increment
	}
	r.State = models.RoundStateRevealed
	if write.FinishGameID != "" {
		if game, ok := s.games[write.FinishGameID]; ok {
			game.Status = models.GameStatusFinished
		}
	}
	return nil
}

func (s *MemoryStore) ResetGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ForcedErr != nil {
		return s.ForcedErr
	}
	game, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	game.Status = models.GameStatusLobby
	game.CurrentRoundID = nil
	for i := range game.Rounds {
		game.Rounds[i].State = models.RoundStateWaiting
		for j := range game.Rounds[i].Questions {
			game.Rounds[i].Questions[j].Answers = nil
		}
	}
	game.Players = nil
	return nil
}

func (s *MemoryStore) findPlayer(id string) *models.Player {
	for _, game := range s.games {
		for i := range game.Players {
			if game.Players[i].ID == id {
				return &game.Players[i]
			}
		}
	}
	return nil
}

func (s *MemoryStore) findRound(id string) *models.Round {
	for _, game := range s.games {
		for i := range game.Rounds {
			if game.Rounds[i].ID == id {
				return &game.Rounds[i]
			}
		}
	}
	return nil
}

func (s *MemoryStore) findQuestion(id string) *models.Question {
	for _, game := range s.games {
		for i := range game.Rounds {
			for j := range game.Rounds[i].Questions {
				if game.Rounds[i].Questions[j].ID == id {
					return &game.Rounds[i].Questions[j]
				}
			}
		}
	}
	return nil
}

func (s *MemoryStore) findAnswer(id string) *models.Answer {
	for _, game := range s.games {
		for i := range game.Rounds {
			for j := range game.Rounds[i].Questions {
				answers := game.Rounds[i].Questions[j].Answers
				for k := range answers {
					if answers[k].ID == id {
						return &answers[k]
					}
				}
			}
		}
	}
	return nil
}

func cloneGame(game *models.Game) *models.Game {
	out := *game
	if game.CurrentRoundID != nil {
		id := *game.CurrentRoundID
		out.CurrentRoundID = &id
	}
	out.Rounds = make([]models.Round, len(game.Rounds))
	for i, round := range game.Rounds {
		r := round
		r.Questions = make([]models.Question, len(round.Questions))
		for j, question := range round.Questions {
			q := question
			q.AcceptedAnswers = append([]models.AcceptedAnswer(nil), question.AcceptedAnswers...)
			q.Answers = make([]models.Answer, len(question.Answers))
			for k, answer := range question.Answers {
				q.Answers[k] = cloneAnswer(answer)
			}
			r.Questions[j] = q
		}
		out.Rounds[i] = r
	}
	out.Players = make([]models.Player, len(game.Players))
	for i, player := range game.Players {
		p := player
		p.Answers = nil
		out.Players[i] = p
	}
	return &out
}

func cloneAnswer(answer models.Answer) models.Answer {
	a := answer
	if answer.IsCorrect != nil {
		v := *answer.IsCorrect
		a.IsCorrect = &v
	}
	if answer.PointsEarned != nil {
		v := *answer.PointsEarned
		a.PointsEarned = &v
	}
	return a
}
