// services/record_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/wfunc/whosaidit/models"
	"github.com/wfunc/whosaidit/persistence"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrArchiveDisabled = errors.New("game archive is disabled")
	ErrInvalidRoom     = errors.New("room id is required")
)

// RecordService answers read queries over the game archive.
type RecordService struct {
	db persistence.Database
}

// NewRecordService accepts a nil db, in which case every query fails with
// ErrArchiveDisabled.
func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// RoomHistory 获取房间最近的对局
func (s *RecordService) RoomHistory(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	if s.db == nil {
		return nil, ErrArchiveDisabled
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	return s.db.RoomHistory(ctx, roomID, clampLimit(limit))
}

// Leaderboard 获取排行榜
func (s *RecordService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if s.db == nil {
		return nil, ErrArchiveDisabled
	}
	return s.db.Leaderboard(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
