// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/whosaidit/config"
	"github.com/wfunc/whosaidit/models"
)

// Database 游戏记录存档接口
// Records are written once per finished game and never read back into live
// room state.
type Database interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
	RoomHistory(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// Open connects the archive named by cfg.Driver. An empty driver disables
// archiving and returns a nil Database.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "postgres":
		return NewPostgreSQL(cfg.Postgres.DSN())
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// leaderboardQuery aggregates the jsonb players column. placeholder is the
// driver's bind marker for the limit.
func leaderboardQuery(placeholder string) string {
	return `
        SELECT p->>'name' AS name,
               COUNT(*) AS games,
               SUM(CASE WHEN (p->>'rank')::int = 1 THEN 1 ELSE 0 END) AS wins,
               SUM((p->>'score')::int) AS total_score
        FROM game_records, jsonb_array_elements(players) AS p
        WHERE deleted_at IS NULL
        GROUP BY p->>'name'
        ORDER BY wins DESC, total_score DESC, name ASC
        LIMIT ` + placeholder
}
