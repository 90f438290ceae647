// models/activity.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// 活动类型
const (
	ActivityXPGain          = "xp_gain"
	ActivityQuestComplete   = "quest_complete"
	ActivityDungeonComplete = "dungeon_complete"
)

// ActivityLog 只追加的活动记录，用于统计
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	PlayerID     uint              `gorm:"index;not null" json:"player_id"`
	ActivityType string            `gorm:"size:50;not null" json:"activity_type"`
	XPGained     int               `gorm:"not null;default:0" json:"xp_gained"`
	Details      datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}
