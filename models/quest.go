// models/quest.go
package models

import (
	"time"
)

// 任务类型
const (
	QuestDaily   = "daily"
	QuestWeekly  = "weekly"
	QuestSide    = "side"
	QuestDungeon = "dungeon"
)

// ValidQuestType reports whether t is a known quest type.
func ValidQuestType(t string) bool {
	switch t {
	case QuestDaily, QuestWeekly, QuestSide, QuestDungeon:
		return true
	}
	return false
}

// QuestTemplate 任务模板
type QuestTemplate struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Title           string `gorm:"size:100;not null" json:"title"`
	Description     string `json:"description"`
	QuestType       string `gorm:"size:20;index;not null" json:"quest_type"`
	XPReward        int    `gorm:"not null" json:"xp_reward"`
	StatBonusType   string `gorm:"size:20" json:"stat_bonus_type,omitempty"`
	StatBonusAmount int    `json:"stat_bonus_amount"`
	Difficulty      string `gorm:"size:20;default:'medium'" json:"difficulty"`
	Icon            string `gorm:"size:50" json:"icon"`
	Category        string `gorm:"size:50" json:"category"`
	TargetCount     int    `gorm:"not null;default:1" json:"target_count"`
	IsActive        bool   `gorm:"not null" json:"is_active"`
}

// HasStatBonus 模板是否带属性奖励
func (q *QuestTemplate) HasStatBonus() bool {
	return q.StatBonusType != "" && q.StatBonusAmount > 0
}

// PlayerQuest 分配给玩家的任务实例
type PlayerQuest struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	PlayerID        uint          `gorm:"index;not null" json:"player_id"`
	QuestTemplateID uint          `gorm:"not null" json:"quest_template_id"`
	QuestTemplate   QuestTemplate `json:"template"`
	Progress        int           `gorm:"not null;default:0" json:"progress"`
	Target          int           `gorm:"not null;default:1" json:"target"`
	Completed       bool          `gorm:"not null;index" json:"completed"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	AssignedAt      time.Time     `json:"assigned_at"`
	DueDate         *time.Time    `json:"due_date,omitempty"`
}

// Expired reports whether an incomplete quest is past its due date.
func (q *PlayerQuest) Expired(now time.Time) bool {
	return !q.Completed && q.DueDate != nil && now.After(*q.DueDate)
}

// NewPlayerQuest 根据模板创建任务实例
func NewPlayerQuest(playerID uint, tpl QuestTemplate, now time.Time, due time.Time) PlayerQuest {
	target := tpl.TargetCount
	if target < 1 {
		target = 1
	}
	return PlayerQuest{
		PlayerID:        playerID,
		QuestTemplateID: tpl.ID,
		Target:          target,
		AssignedAt:      now,
		DueDate:         &due,
	}
}
