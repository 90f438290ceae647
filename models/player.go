// models/player.go
package models

import (
	"time"
)

// 属性名称
const (
	StatStrength     = "strength"
	StatAgility      = "agility"
	StatIntelligence = "intelligence"
	StatVitality     = "vitality"
	StatLuck         = "luck"
)

// StatNames 可分配的五项属性
var StatNames = []string{StatStrength, StatAgility, StatIntelligence, StatVitality, StatLuck}

// ValidStat reports whether name is one of the five attribute columns.
func ValidStat(name string) bool {
	for _, s := range StatNames {
		if s == name {
			return true
		}
	}
	return false
}

// Player 玩家
type Player struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Level        int        `gorm:"not null;default:1" json:"level"`
	XP           int        `gorm:"not null;default:0" json:"xp"`
	RankID       uint       `gorm:"not null;default:1" json:"rank_id"`
	StreakDays   int        `gorm:"not null;default:0" json:"streak_days"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Rank 段位
type Rank struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	MinLevel     int    `gorm:"not null" json:"min_level"`
	Color        string `gorm:"size:20;default:'#808080'" json:"color"`
	Icon         string `gorm:"size:50" json:"icon"`
	DisplayOrder int    `gorm:"not null" json:"display_order"`
}

// PlayerStats 玩家属性
type PlayerStats struct {
	ID           uint `gorm:"primaryKey" json:"-"`
	PlayerID     uint `gorm:"uniqueIndex;not null" json:"player_id"`
	Strength     int  `gorm:"not null" json:"strength"`
	Agility      int  `gorm:"not null" json:"agility"`
	Intelligence int  `gorm:"not null" json:"intelligence"`
	Vitality     int  `gorm:"not null" json:"vitality"`
	Luck         int  `gorm:"not null" json:"luck"`
	StatPoints   int  `gorm:"not null" json:"stat_points"`
}

// NewPlayerStats 新玩家的初始属性
func NewPlayerStats(playerID uint) *PlayerStats {
	return &PlayerStats{
		PlayerID:     playerID,
		Strength:     10,
		Agility:      10,
		Intelligence: 10,
		Vitality:     10,
		Luck:         5,
	}
}

// Get returns the value of a named attribute.
func (s *PlayerStats) Get(stat string) int {
	switch stat {
	case StatStrength:
		return s.Strength
	case StatAgility:
		return s.Agility
	case StatIntelligence:
		return s.Intelligence
	case StatVitality:
		return s.Vitality
	case StatLuck:
		return s.Luck
	}
	return 0
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	StreakDays int    `json:"streak_days"`
	RankName   string `json:"rank_name"`
	RankColor  string `json:"rank_color"`
}
