// models/achievement.go
package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/wfunc/arise/progression"
)

var rarityOrder = map[string]int{
	"common":    1,
	"uncommon":  2,
	"rare":      3,
	"epic":      4,
	"legendary": 5,
}

// RarityRank orders rarities from common (1) to legendary (5); unknown is 0.
func RarityRank(rarity string) int {
	return rarityOrder[rarity]
}

// Achievement 成就定义
type Achievement struct {
	ID                 uint                                         `gorm:"primaryKey" json:"id"`
	Name               string                                       `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description        string                                       `json:"description"`
	Requirement        datatypes.JSONType[progression.Requirement] `json:"requirement"`
	PassiveBonusType   string                                       `gorm:"size:50" json:"passive_bonus_type,omitempty"`
	PassiveBonusAmount int                                          `json:"passive_bonus_amount"`
	XPReward           int                                          `gorm:"not null;default:0" json:"xp_reward"`
	Icon               string                                       `gorm:"size:50" json:"icon"`
	Rarity             string                                       `gorm:"size:20;default:'common'" json:"rarity"`
}

// PlayerAchievement 已解锁的成就，(player, achievement) 唯一
type PlayerAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PlayerID      uint      `gorm:"uniqueIndex:idx_player_achievement;not null" json:"player_id"`
	AchievementID uint      `gorm:"uniqueIndex:idx_player_achievement;not null" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}
