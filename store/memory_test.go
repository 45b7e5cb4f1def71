package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhumataybara/quiz-app/models"
)

func memoryFixture() *models.Game {
	return &models.Game{
		ID:       "g1",
		Title:    "Movie Night",
		RoomCode: "ABC123",
		Status:   models.GameStatusLobby,
		Rounds: []models.Round{
			{
				ID: "r2", GameID: "g1", Title: "Main", OrderIndex: 2,
				State: models.RoundStateWaiting,
				Questions: []models.Question{
					{ID: "q2", RoundID: "r2", OrderIndex: 1, Points: 3},
				},
			},
			{
				ID: "r1", GameID: "g1", Title: "Warmup", OrderIndex: 1,
				State: models.RoundStateWaiting,
				Questions: []models.Question{
					{ID: "q1b", RoundID: "r1", OrderIndex: 2, Points: 1},
					{ID: "q1a", RoundID: "r1", OrderIndex: 1, Points: 2},
				},
			},
		},
	}
}

func TestGenerateRoomCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	for i := 0; i < 50; i++ {
		code := GenerateRoomCode()
		assert.True(t, pattern.MatchString(code), "unexpected room code %q", code)
	}
}

func TestMemoryStoreAddSortsByOrderIndex(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())

	game, err := s.GameByID(context.Background(), "g1")
	require.NoError(t, err)

	require.Len(t, game.Rounds, 2)
	assert.Equal(t, "r1", game.Rounds[0].ID)
	assert.Equal(t, "r2", game.Rounds[1].ID)
	assert.Equal(t, "q1a", game.Rounds[0].Questions[0].ID)
	assert.Equal(t, "q1b", game.Rounds[0].Questions[1].ID)
}

func TestMemoryStoreGameByIDReturnsIndependentCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	first, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	first.Title = "mutated"
	first.Rounds[0].State = models.RoundStateRevealed

	second, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Movie Night", second.Title)
	assert.Equal(t, models.RoundStateWaiting, second.Rounds[0].State)
}

func TestMemoryStoreGameByIDNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GameByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGameIDByRoomCode(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	id, err := s.GameIDByRoomCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	_, err = s.GameIDByRoomCode(ctx, "ZZZ999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpsertAnswerDeduplicates(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	require.NoError(t, s.UpsertAnswer(ctx, &models.Answer{
		ID: "a1", PlayerID: "p1", QuestionID: "q1a", ExternalID: 99, SubmittedText: "Speed", SubmittedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertAnswer(ctx, &models.Answer{
		ID: "a2", PlayerID: "p1", QuestionID: "q1a", ExternalID: 42, SubmittedText: "The Matrix", SubmittedAt: time.Now(),
	}))

	game, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	answers := game.Rounds[0].Questions[0].Answers
	require.Len(t, answers, 1)
	assert.Equal(t, int64(42), answers[0].ExternalID)
	assert.Equal(t, "The Matrix", answers[0].SubmittedText)

	// A different player gets their own row.
	require.NoError(t, s.UpsertAnswer(ctx, &models.Answer{
		ID: "a3", PlayerID: "p2", QuestionID: "q1a", ExternalID: 42, SubmittedAt: time.Now(),
	}))
	game, _ = s.GameByID(ctx, "g1")
	assert.Len(t, game.Rounds[0].Questions[0].Answers, 2)
}

func TestMemoryStoreActivateRound(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	require.NoError(t, s.ActivateRound(ctx, "g1", "r1"))

	game, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, game.Status)
	require.NotNil(t, game.CurrentRoundID)
	assert.Equal(t, "r1", *game.CurrentRoundID)
	assert.Equal(t, models.RoundStateActive, game.Rounds[0].State)

	assert.ErrorIs(t, s.ActivateRound(ctx, "missing", "r1"), ErrNotFound)
}

func TestMemoryStoreRevealRound(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	require.NoError(t, s.CreatePlayer(ctx, &models.Player{ID: "p1", GameID: "g1", Nickname: "Alex"}))
	require.NoError(t, s.UpsertAnswer(ctx, &models.Answer{ID: "a1", PlayerID: "p1", QuestionID: "q1a", ExternalID: 42}))
	require.NoError(t, s.UpdateRoundState(ctx, "r1", models.RoundStateLocked))

	write := RevealWrite{
		RoundID:         "r1",
		Answers:         []RevealedAnswer{{AnswerID: "a1", IsCorrect: true, PointsEarned: 2}},
		ScoreIncrements: map[string]int{"p1": 2},
	}
	require.NoError(t, s.RevealRound(ctx, write))

	game, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.RoundStateRevealed, game.Rounds[0].State)
	assert.Equal(t, 2, game.Players[0].TotalScore)
	answer := game.Rounds[0].Questions[0].Answers[0]
	require.NotNil(t, answer.IsCorrect)
	assert.True(t, *answer.IsCorrect)
	assert.Equal(t, 2, *answer.PointsEarned)
}

func TestMemoryStoreForcedErrBlocksTransactionalWrites(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()
	boom := errors.New("storage down")

	s.ForcedErr = boom
	assert.ErrorIs(t, s.ActivateRound(ctx, "g1", "r1"), boom)
	assert.ErrorIs(t, s.RevealRound(ctx, RevealWrite{RoundID: "r1"}), boom)
	assert.ErrorIs(t, s.ResetGame(ctx, "g1"), boom)

	// Nothing was applied.
	game, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusLobby, game.Status)
	assert.Equal(t, models.RoundStateWaiting, game.Rounds[0].State)
}

func TestMemoryStoreResetGame(t *testing.T) {
	s := NewMemoryStore()
	s.Add(memoryFixture())
	ctx := context.Background()

	require.NoError(t, s.CreatePlayer(ctx, &models.Player{ID: "p1", GameID: "g1", Nickname: "Alex"}))
	require.NoError(t, s.UpsertAnswer(ctx, &models.Answer{ID: "a1", PlayerID: "p1", QuestionID: "q1a", ExternalID: 42}))
	require.NoError(t, s.ActivateRound(ctx, "g1", "r1"))

	require.NoError(t, s.ResetGame(ctx, "g1"))

	game, err := s.GameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusLobby, game.Status)
	assert.Nil(t, game.CurrentRoundID)
	assert.Empty(t, game.Players)
	for _, round := range game.Rounds {
		assert.Equal(t, models.RoundStateWaiting, round.State)
		for _, q := range round.Questions {
			assert.Empty(t, q.Answers)
		}
	}
}
