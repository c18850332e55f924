// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID     string         `gorm:"index;not null"`
	Rounds     int            `gorm:"not null"`
	Players    []PlayerResult `gorm:"serializer:json;type:jsonb;not null"`
	FinishedAt time.Time      `gorm:"index"`
}

func (GormGameRecord) TableName() string {
	return "game_records"
}

func NewGormGameRecord(r *GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RoomID:     r.RoomID,
		Rounds:     r.Rounds,
		Players:    r.Players,
		FinishedAt: r.FinishedAt,
	}
}

func (g *GormGameRecord) Record() GameRecord {
	return GameRecord{
		RoomID:     g.RoomID,
		Rounds:     g.Rounds,
		Players:    g.Players,
		FinishedAt: g.FinishedAt,
	}
}
