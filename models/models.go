// models/models.go
package models

import (
	"sort"
	"time"
)

// GameRecord is the archived outcome of a finished game.
type GameRecord struct {
	RoomID     string         `json:"room_id"`
	Rounds     int            `json:"rounds"`
	Players    []PlayerResult `json:"players"`
	FinishedAt time.Time      `json:"finished_at"`
}

// PlayerResult is one player's final standing. Rank 1 is the winner; tied
// scores share a rank.
type PlayerResult struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// LeaderboardEntry aggregates archived results by player name.
type LeaderboardEntry struct {
	Name       string `json:"name"`
	Games      int    `json:"games"`
	Wins       int    `json:"wins"`
	TotalScore int    `json:"total_score"`
}

// Winners returns the names ranked first.
func (r *GameRecord) Winners() []string {
	var names []string
	for _, p := range r.Players {
		if p.Rank == 1 {
			names = append(names, p.Name)
		}
	}
	return names
}

// BuildLeaderboard aggregates records by player name, ordered by wins, then
// total score, then name.
func BuildLeaderboard(records []GameRecord) []LeaderboardEntry {
	byName := make(map[string]*LeaderboardEntry)
	for _, r := range records {
		for _, p := range r.Players {
			e, ok := byName[p.Name]
			if !ok {
				e = &LeaderboardEntry{Name: p.Name}
				byName[p.Name] = e
			}
			e.Games++
			e.TotalScore += p.Score
			if p.Rank == 1 {
				e.Wins++
			}
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.Name < b.Name
	})
	return entries
}
