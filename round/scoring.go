package round

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wfunc/whosaidit/models"
	"github.com/wfunc/whosaidit/network"
	"github.com/wfunc/whosaidit/room"
	"github.com/wfunc/whosaidit/session"
)

// ParseRounds turns a client-supplied round count into a usable one. Numbers
// and numeric strings are accepted, fractions truncate; anything malformed or
// non-positive yields fallback and anything above max is capped.
func ParseRounds(raw string, fallback, max int) int {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	raw = strings.TrimSpace(raw)

	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		if f >= float64(max) {
			return max
		}
		if f < 1 {
			return fallback
		}
		n = int(f)
	}

	if n < 1 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

// truthVoteBeneficiary returns who earns the bonus for a truth vote on a:
// the voter for spotting the truth, otherwise the author for the deception.
func truthVoteBeneficiary(voterID string, a *room.Answer) string {
	if a.IsTruth {
		return voterID
	}
	return a.AuthorID
}

type standing struct {
	id    string
	name  string
	score int
}

// standings orders members by score, highest first, keeping join order on ties.
func standings(players *session.Manager, ids []string) []standing {
	out := make([]standing, 0, len(ids))
	for _, id := range ids {
		p, ok := players.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, standing{id: id, name: p.Name(), score: p.Score()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func scoreEntries(st []standing) []network.ScoreEntry {
	scores := make([]network.ScoreEntry, len(st))
	for i, s := range st {
		scores[i] = network.ScoreEntry{Name: s.name, Score: s.score}
	}
	return scores
}

// playerResults ranks standings; equal scores share the better rank.
func playerResults(st []standing) []models.PlayerResult {
	results := make([]models.PlayerResult, len(st))
	for i, s := range st {
		rank := i + 1
		if i > 0 && s.score == st[i-1].score {
			rank = results[i-1].Rank
		}
		results[i] = models.PlayerResult{Name: s.name, Score: s.score, Rank: rank}
	}
	return results
}

// resultEntries reveals authorship and the truth once voting is over.
func resultEntries(players *session.Manager, answers []*room.Answer, fallback string) []network.ResultEntry {
	entries := make([]network.ResultEntry, len(answers))
	for i, a := range answers {
		author := fallback
		if p, ok := players.Lookup(a.AuthorID); ok {
			author = p.Name()
		}
		entries[i] = network.ResultEntry{
			Author:     author,
			Text:       a.Text,
			TruthVotes: a.TruthVotes,
			FunnyVotes: a.FunnyVotes,
			IsTruth:    a.IsTruth,
		}
	}
	return entries
}

func votingEntries(answers []*room.Answer) []network.VotingEntry {
	entries := make([]network.VotingEntry, len(answers))
	for i, a := range answers {
		entries[i] = network.VotingEntry{Index: i, Text: a.Text}
	}
	return entries
}
