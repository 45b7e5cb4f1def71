package services

import (
	"sort"

	"github.com/zhumataybara/quiz-app/models"
)

type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	Nickname    string `json:"nickname"`
	TotalScore  int    `json:"totalScore"`
	IsConnected bool   `json:"isConnected"`
	Rank        int    `json:"rank"`
}

// BuildLeaderboard ranks players by descending score. Ranks are 1-based and
// ties get distinct consecutive ranks in input order (stable sort, no rank
// gaps). The input slice is not modified.
func BuildLeaderboard(players []models.Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			TotalScore:  p.TotalScore,
			IsConnected: p.IsConnected,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LeaderboardRank returns a player's 1-based rank, or 0 if absent.
func LeaderboardRank(entries []LeaderboardEntry, playerID string) int {
	for _, e := range entries {
		if e.PlayerID == playerID {
			return e.Rank
		}
	}
	return 0
}
