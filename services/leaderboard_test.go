package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhumataybara/quiz-app/models"
)

func TestBuildLeaderboardOrdersByScoreDescending(t *testing.T) {
	players := []models.Player{
		{ID: "p1", Nickname: "Alex", TotalScore: 3},
		{ID: "p2", Nickname: "Sam", TotalScore: 10},
		{ID: "p3", Nickname: "Kim", TotalScore: 7},
	}

	lb := BuildLeaderboard(players)

	assert.Equal(t, []string{"p2", "p3", "p1"}, []string{lb[0].PlayerID, lb[1].PlayerID, lb[2].PlayerID})
	assert.Equal(t, []int{1, 2, 3}, []int{lb[0].Rank, lb[1].Rank, lb[2].Rank})
}

func TestBuildLeaderboardTiesKeepInputOrder(t *testing.T) {
	players := []models.Player{
		{ID: "p1", TotalScore: 5},
		{ID: "p2", TotalScore: 5},
		{ID: "p3", TotalScore: 5},
	}

	lb := BuildLeaderboard(players)

	// Ties get distinct consecutive ranks in input order, no gaps.
	assert.Equal(t, "p1", lb[0].PlayerID)
	assert.Equal(t, "p2", lb[1].PlayerID)
	assert.Equal(t, "p3", lb[2].PlayerID)
	assert.Equal(t, []int{1, 2, 3}, []int{lb[0].Rank, lb[1].Rank, lb[2].Rank})
}

func TestBuildLeaderboardDoesNotMutateInput(t *testing.T) {
	players := []models.Player{
		{ID: "p1", TotalScore: 1},
		{ID: "p2", TotalScore: 9},
	}

	BuildLeaderboard(players)

	assert.Equal(t, "p1", players[0].ID)
	assert.Equal(t, "p2", players[1].ID)
}

func TestBuildLeaderboardEmpty(t *testing.T) {
	assert.Empty(t, BuildLeaderboard(nil))
}

func TestLeaderboardRank(t *testing.T) {
	lb := BuildLeaderboard([]models.Player{
		{ID: "p1", TotalScore: 2},
		{ID: "p2", TotalScore: 8},
	})

	assert.Equal(t, 1, LeaderboardRank(lb, "p2"))
	assert.Equal(t, 2, LeaderboardRank(lb, "p1"))
	assert.Equal(t, 0, LeaderboardRank(lb, "missing"))
}
