package services

import (
	"context"
	"testing"

	"github.com/wfunc/whosaidit/models"
)

// MockDatabase records the limits it was queried with.
type MockDatabase struct {
	lastRoom  string
	lastLimit int
}

func (m *MockDatabase) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	return nil
}

func (m *MockDatabase) RoomHistory(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	m.lastRoom, m.lastLimit = roomID, limit
	return []models.GameRecord{{RoomID: roomID}}, nil
}

func (m *MockDatabase) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.lastLimit = limit
	return nil, nil
}

func (m *MockDatabase) Close() error { return nil }

func TestRecordService_Limits(t *testing.T) {
	db := &MockDatabase{}
	s := NewRecordService(db)
	ctx := context.Background()

	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{25, 25},
		{1000, MaxLimit},
	}
	for _, tt := range tests {
		if _, err := s.Leaderboard(ctx, tt.in); err != nil {
			t.Fatalf("Leaderboard failed: %v", err)
		}
		if db.lastLimit != tt.want {
			t.Errorf("limit %d: got %d, want %d", tt.in, db.lastLimit, tt.want)
		}
	}
}

func TestRecordService_RoomHistory(t *testing.T) {
	db := &MockDatabase{}
	s := NewRecordService(db)
	ctx := context.Background()

	if _, err := s.RoomHistory(ctx, "  ", 5); err != ErrInvalidRoom {
		t.Fatalf("Expected ErrInvalidRoom, got %v", err)
	}

	records, err := s.RoomHistory(ctx, " r1 ", 5)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if db.lastRoom != "r1" || len(records) != 1 {
		t.Fatalf("Expected trimmed room id, got %q", db.lastRoom)
	}
}

func TestRecordService_Disabled(t *testing.T) {
	s := NewRecordService(nil)
	ctx := context.Background()

	if _, err := s.RoomHistory(ctx, "r1", 1); err != ErrArchiveDisabled {
		t.Fatalf("Expected ErrArchiveDisabled, got %v", err)
	}
	if _, err := s.Leaderboard(ctx, 1); err != ErrArchiveDisabled {
		t.Fatalf("Expected ErrArchiveDisabled, got %v", err)
	}
}
