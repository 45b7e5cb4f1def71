package services

import (
	"time"

	"github.com/zhumataybara/quiz-app/models"
)

// View structs are built fresh from canonical state on every projection, so a
// view is always an independent deep copy: mutating one never touches the
// session's state or the other view.

type GameStateView struct {
	Game         GameView           `json:"game"`
	CurrentRound *RoundView         `json:"currentRound"`
	Players      []PlayerView       `json:"players"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Progress     ProgressView       `json:"progress"`
}

type GameView struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	RoomCode       string            `json:"roomCode"`
	Status         models.GameStatus `json:"status"`
	CurrentRoundID *string           `json:"currentRoundId"`
	Rounds         []RoundView       `json:"rounds"`
}

type RoundView struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	OrderIndex int               `json:"orderIndex"`
	State      models.RoundState `json:"state"`
	Questions  []QuestionView    `json:"questions"`
}

type QuestionView struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	OrderIndex      int                  `json:"orderIndex"`
	Points          int                  `json:"points"`
	AcceptedAnswers []AcceptedAnswerView `json:"acceptedAnswers,omitempty"`
	Answers         []AnswerView         `json:"answers,omitempty"`
}

type AcceptedAnswerView struct {
	ExternalID int64  `json:"externalId"`
	Title      string `json:"title"`
	PosterPath string `json:"posterPath,omitempty"`
}

type AnswerView struct {
	ID            string    `json:"id"`
	PlayerID      string    `json:"playerId"`
	QuestionID    string    `json:"questionId"`
	ExternalID    int64     `json:"externalId"`
	SubmittedText string    `json:"submittedText"`
	IsCorrect     *bool     `json:"isCorrect"`
	PointsEarned  *int      `json:"pointsEarned"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type PlayerView struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	TotalScore  int    `json:"totalScore"`
	IsConnected bool   `json:"isConnected"`
}

type ProgressView struct {
	CurrentRound    int `json:"currentRound"`
	TotalRounds     int `json:"totalRounds"`
	CurrentQuestion int `json:"currentQuestion"`
	TotalQuestions  int `json:"totalQuestions"`
}

// ProjectState derives both audience views from canonical state.
func ProjectState(game *models.Game) (organizer, public *GameStateView) {
	return ProjectOrganizerState(game), ProjectPublicState(game)
}

// ProjectOrganizerState builds the full view: every accepted-answer set and
// every submitted answer, regardless of round state.
func ProjectOrganizerState(game *models.Game) *GameStateView {
	return projectState(game, false)
}

// ProjectPublicState builds the sanitized view for players and screens. For
// any round that is not REVEALED, the accepted-answer sets and the submitted
// answers are stripped. Once a round is revealed its accepted answers become
// public (post-round display needs them) and so do its scored answers.
func ProjectPublicState(game *models.Game) *GameStateView {
	return projectState(game, true)
}

func projectState(game *models.Game, sanitize bool) *GameStateView {
	view := &GameStateView{
		Game: GameView{
			ID:       game.ID,
			Title:    game.Title,
			RoomCode: game.RoomCode,
			Status:   game.Status,
			Rounds:   make([]RoundView, len(game.Rounds)),
		},
		Players:     make([]PlayerView, len(game.Players)),
		Leaderboard: BuildLeaderboard(game.Players),
	}
	if game.CurrentRoundID != nil {
		id := *game.CurrentRoundID
		view.Game.CurrentRoundID = &id
	}

	for i := range game.Rounds {
		view.Game.Rounds[i] = projectRound(&game.Rounds[i], sanitize)
	}
	for i, p := range game.Players {
		view.Players[i] = PlayerView{
			ID:          p.ID,
			Nickname:    p.Nickname,
			TotalScore:  p.TotalScore,
			IsConnected: p.IsConnected,
		}
	}

	view.Progress.TotalRounds = len(game.Rounds)
	if current := game.CurrentRound(); current != nil {
		for i := range game.Rounds {
			if game.Rounds[i].ID == current.ID {
				rv := projectRound(&game.Rounds[i], sanitize)
				view.CurrentRound = &rv
				view.Progress.CurrentRound = i + 1
				break
			}
		}
		view.Progress.TotalQuestions = len(current.Questions)
		view.Progress.CurrentQuestion = len(current.Questions)
	}
	return view
}

func projectRound(round *models.Round, sanitize bool) RoundView {
	rv := RoundView{
		ID:         round.ID,
		Title:      round.Title,
		OrderIndex: round.OrderIndex,
		State:      round.State,
		Questions:  make([]QuestionView, len(round.Questions)),
	}
	hidden := sanitize && round.State != models.RoundStateRevealed
	for i, q := range round.Questions {
		qv := QuestionView{
			ID:         q.ID,
			Title:      q.Title,
			OrderIndex: q.OrderIndex,
			Points:     q.Points,
		}
		if !hidden {
			qv.AcceptedAnswers = make([]AcceptedAnswerView, len(q.AcceptedAnswers))
			for j, a := range q.AcceptedAnswers {
				qv.AcceptedAnswers[j] = AcceptedAnswerView{
					ExternalID: a.ExternalID,
					Title:      a.Title,
					PosterPath: a.PosterPath,
				}
			}
			qv.Answers = make([]AnswerView, len(q.Answers))
			for j, a := range q.Answers {
				qv.Answers[j] = AnswerView{
					ID:            a.ID,
					PlayerID:      a.PlayerID,
					QuestionID:    a.QuestionID,
					ExternalID:    a.ExternalID,
					SubmittedText: a.SubmittedText,
					IsCorrect:     clonePtr(a.IsCorrect),
					PointsEarned:  clonePtr(a.PointsEarned),
					SubmittedAt:   a.SubmittedAt,
				}
			}
		}
		rv.Questions[i] = qv
	}
	return rv
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
