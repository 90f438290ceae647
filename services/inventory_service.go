// services/inventory_service.go
package services

import (
	"context"
	"fmt"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
)

type InventoryService struct {
	*core
}

// ItemUse 使用道具的结果。经验倍率和驱散效果只回传，不持久化
type ItemUse struct {
	Item   string              `json:"item"`
	Effect models.ItemEffect   `json:"effect"`
	Stats  *models.PlayerStats `json:"stats"`
}

// List 玩家背包
func (s *InventoryService) List(ctx context.Context, playerID uint) ([]models.InventoryEntry, error) {
	return s.store.ListInventory(ctx, playerID)
}

// Use 使用一个道具：应用属性加成，数量减一，用完移出背包
func (s *InventoryService) Use(ctx context.Context, playerID, entryID uint) (*ItemUse, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var result ItemUse
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		entry, err := tx.GetInventoryEntry(ctx, playerID, entryID)
		if err != nil {
			return fmt.Errorf("inventory entry %d: %w", entryID, err)
		}
		effect := entry.Item.Effect.Data()

		if len(effect.StatBoost) > 0 {
			deltas := make(map[string]int, len(effect.StatBoost))
			for stat, amount := range effect.StatBoost {
				if !models.ValidStat(stat) {
					return fmt.Errorf("%w: item %q boosts unknown stat %q", apperr.ErrInvalidArgument, entry.Item.Name, stat)
				}
				deltas[stat] = amount
			}
			if err := tx.IncrementStats(ctx, playerID, deltas); err != nil {
				return err
			}
		}

		if err := tx.ConsumeInventory(ctx, entry.ID); err != nil {
			return err
		}
		stats, err := tx.GetStats(ctx, playerID)
		if err != nil {
			return err
		}
		result = ItemUse{Item: entry.Item.Name, Effect: effect, Stats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
