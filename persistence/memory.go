package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/whosaidit/models"
)

// Memory keeps records in process; they are lost on restart.
type Memory struct {
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := *record
	r.Players = append([]models.PlayerResult(nil), record.Players...)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, r)
	return nil
}

// RoomHistory returns roomID's games, most recent first.
func (m *Memory) RoomHistory(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GameRecord
	for _, r := range m.records {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mutex.RLock()
	board := models.BuildLeaderboard(m.records)
	m.mutex.RUnlock()

	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

func (m *Memory) Close() error {
	return nil
}
