// models/inventory.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ItemEffect 道具效果
type ItemEffect struct {
	XPMultiplier float64        `json:"xp_multiplier,omitempty"`
	StatBoost    map[string]int `json:"stat_boost,omitempty"`
	RemoveDebuff bool           `json:"remove_debuff,omitempty"`
}

// Item 道具定义
type Item struct {
	ID            uint                            `gorm:"primaryKey" json:"id"`
	Name          string                          `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description   string                          `json:"description"`
	ItemType      string                          `gorm:"size:20;not null" json:"item_type"`
	Rarity        string                          `gorm:"size:20;default:'common'" json:"rarity"`
	Effect        datatypes.JSONType[ItemEffect] `json:"effect"`
	DurationHours int                             `json:"duration_hours,omitempty"`
	Icon          string                          `gorm:"size:50" json:"icon"`
	IsTradeable   bool                            `gorm:"not null" json:"is_tradeable"`
}

// InventoryEntry 玩家背包中的一格
type InventoryEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlayerID   uint      `gorm:"index;not null" json:"player_id"`
	ItemID     uint      `gorm:"not null" json:"item_id"`
	Item       Item      `json:"item"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func (InventoryEntry) TableName() string {
	return "inventory"
}
