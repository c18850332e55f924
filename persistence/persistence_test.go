package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/whosaidit/config"
	"github.com/wfunc/whosaidit/models"
)

func TestOpen(t *testing.T) {
	db, err := Open(config.DatabaseConfig{})
	if err != nil || db != nil {
		t.Fatalf("Empty driver should disable the archive, got %v, %v", db, err)
	}

	db, err = Open(config.DatabaseConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := db.(*Memory); !ok {
		t.Fatalf("Expected *Memory, got %T", db)
	}

	if _, err := Open(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("Unknown driver should fail")
	}
}

func TestMemory_RoomHistory(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := &models.GameRecord{RoomID: "r1", Rounds: i + 1, FinishedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.SaveGameRecord(ctx, rec); err != nil {
			t.Fatalf("SaveGameRecord failed: %v", err)
		}
	}
	db.SaveGameRecord(ctx, &models.GameRecord{RoomID: "r2", Rounds: 9, FinishedAt: base})

	history, err := db.RoomHistory(ctx, "r1", 2)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].Rounds != 3 || history[1].Rounds != 2 {
		t.Fatalf("Expected most recent first, got %d then %d", history[0].Rounds, history[1].Rounds)
	}

	if _, err := db.RoomHistory(ctx, "nowhere", 10); err != ErrRecordNotFound {
		t.Fatalf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemory_SaveCopiesRecord(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	rec := &models.GameRecord{RoomID: "r1", Players: []models.PlayerResult{{Name: "Ana", Score: 10, Rank: 1}}}
	db.SaveGameRecord(ctx, rec)

	rec.Players[0].Name = "changed"
	history, _ := db.RoomHistory(ctx, "r1", 1)
	if history[0].Players[0].Name != "Ana" {
		t.Fatal("Stored record should not alias the caller's slice")
	}
}

func TestMemory_SaveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory().SaveGameRecord(ctx, &models.GameRecord{RoomID: "r1"}); err == nil {
		t.Fatal("Cancelled context should fail the save")
	}
}

func TestMemory_Leaderboard(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	db.SaveGameRecord(ctx, &models.GameRecord{RoomID: "r1", Players: []models.PlayerResult{
		{Name: "Ana", Score: 30, Rank: 1}, {Name: "Bo", Score: 10, Rank: 2},
	}})
	db.SaveGameRecord(ctx, &models.GameRecord{RoomID: "r2", Players: []models.PlayerResult{
		{Name: "Ana", Score: 20, Rank: 1}, {Name: "Cy", Score: 0, Rank: 2},
	}})

	board, err := db.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("Expected limit to apply, got %d entries", len(board))
	}
	if board[0].Name != "Ana" || board[0].Wins != 2 || board[0].TotalScore != 50 {
		t.Fatalf("Unexpected leader %+v", board[0])
	}
}

func TestLeaderboardQuery(t *testing.T) {
	q := leaderboardQuery("$1")
	if !strings.HasSuffix(q, "LIMIT $1") {
		t.Fatalf("Placeholder not applied:\n%s", q)
	}
	if !strings.Contains(q, "jsonb_array_elements(players)") {
		t.Fatal("Query should unnest the players column")
	}
}
