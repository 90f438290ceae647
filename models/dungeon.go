// models/dungeon.go
package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/wfunc/arise/state"
)

// DungeonRewards 地下城额外奖励
type DungeonRewards struct {
	StatPoints int      `json:"stat_points,omitempty"`
	Items      []string `json:"items,omitempty"`
}

// Dungeon 地下城定义
type Dungeon struct {
	ID             uint                                `gorm:"primaryKey" json:"id"`
	Name           string                              `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description    string                              `json:"description"`
	Difficulty     string                              `gorm:"size:2;default:'E'" json:"difficulty"`
	RequiredLevel  int                                 `gorm:"not null;default:1" json:"required_level"`
	XPReward       int                                 `gorm:"not null" json:"xp_reward"`
	TimeLimitHours int                                 `gorm:"not null;default:24" json:"time_limit_hours"`
	QuestCount     int                                 `gorm:"not null;default:5" json:"quest_count"`
	Rewards        datatypes.JSONType[DungeonRewards] `json:"rewards"`
	IsActive       bool                                `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time                           `json:"created_at"`
}

// DungeonProgress 玩家的一次地下城挑战
type DungeonProgress struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	PlayerID        uint         `gorm:"index;not null" json:"player_id"`
	DungeonID       uint         `gorm:"not null" json:"dungeon_id"`
	Dungeon         Dungeon      `json:"dungeon"`
	StartedAt       time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	Status          state.Status `gorm:"size:20;index;not null" json:"status"`
	QuestsCompleted int          `gorm:"not null;default:0" json:"quests_completed"`
}

// ExpiresAt 挑战截止时间，需要已加载 Dungeon
func (p *DungeonProgress) ExpiresAt() time.Time {
	return p.StartedAt.Add(time.Duration(p.Dungeon.TimeLimitHours) * time.Hour)
}

// Overdue reports whether an in-progress run has passed its time limit.
func (p *DungeonProgress) Overdue(now time.Time) bool {
	return p.Status == state.DungeonInProgress && now.After(p.ExpiresAt())
}
