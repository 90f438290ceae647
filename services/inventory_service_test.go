package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
)

func (e *testEnv) give(t *testing.T, playerID uint, name string, quantity int) models.InventoryEntry {
	t.Helper()
	ctx := context.Background()
	items, err := e.store.GetItemsByName(ctx, []string{name})
	if err != nil || len(items) != 1 {
		t.Fatalf("item %s not seeded: %v", name, err)
	}
	if err := e.store.AddInventory(ctx, playerID, items[0].ID, quantity, e.clock.Now()); err != nil {
		t.Fatalf("AddInventory failed: %v", err)
	}
	inv, _ := e.store.ListInventory(ctx, playerID)
	for _, entry := range inv {
		if entry.ItemID == items[0].ID {
			return entry
		}
	}
	t.Fatalf("inventory entry for %s missing", name)
	return models.InventoryEntry{}
}

func TestUseItem_StatBoost(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "igris")
	entry := env.give(t, p.ID, "Elixir of Strength", 2)

	res, err := env.svc.Inventory.Use(ctx, p.ID, entry.ID)
	if err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	if res.Item != "Elixir of Strength" || res.Stats.Strength != 12 {
		t.Errorf("unexpected use result: %+v", res)
	}
	inv, _ := env.svc.Inventory.List(ctx, p.ID)
	if len(inv) != 1 || inv[0].Quantity != 1 {
		t.Fatalf("Expected one elixir left, got %+v", inv)
	}

	if _, err := env.svc.Inventory.Use(ctx, p.ID, entry.ID); err != nil {
		t.Fatalf("second Use failed: %v", err)
	}
	if inv, _ := env.svc.Inventory.List(ctx, p.ID); len(inv) != 0 {
		t.Errorf("Expected entry to be removed when used up, got %+v", inv)
	}
	if env.stats(t, p.ID).Strength != 14 {
		t.Error("Expected both boosts to be applied")
	}
	if _, err := env.svc.Inventory.Use(ctx, p.ID, entry.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound once used up, got %v", err)
	}
}

func TestUseItem_EffectOnly(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "scholar")
	entry := env.give(t, p.ID, "Scroll of Wisdom", 1)

	res, err := env.svc.Inventory.Use(ctx, p.ID, entry.ID)
	if err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	if res.Effect.XPMultiplier != 2 {
		t.Errorf("Expected xp multiplier in result, got %+v", res.Effect)
	}
	if got := env.stats(t, p.ID); got.Strength != 10 || got.Intelligence != 10 {
		t.Errorf("Expected stats untouched, got %+v", got)
	}
}

func TestUseItem_OtherPlayer(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	owner := env.newPlayer(t, "owner")
	thief := env.newPlayer(t, "thief")
	entry := env.give(t, owner.ID, "Minor Potion", 1)

	if _, err := env.svc.Inventory.Use(ctx, thief.ID, entry.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if inv, _ := env.svc.Inventory.List(ctx, owner.ID); len(inv) != 1 {
		t.Error("Expected owner's entry to be untouched")
	}
}
