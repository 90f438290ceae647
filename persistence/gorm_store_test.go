package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/state"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := store.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createPlayer(t *testing.T, store *GormStore, name string) *models.Player {
	t.Helper()
	p := &models.Player{Username: name, Email: name + "@example.com", PasswordHash: "x", Level: 1, RankID: 1}
	if err := store.CreatePlayer(context.Background(), p); err != nil {
		t.Fatalf("CreatePlayer failed: %v", err)
	}
	if err := store.CreateStats(context.Background(), models.NewPlayerStats(p.ID)); err != nil {
		t.Fatalf("CreateStats failed: %v", err)
	}
	return p
}

func TestSeed_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Seed(ctx); err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	ranks, err := store.GetRanks(ctx)
	if err != nil {
		t.Fatalf("GetRanks failed: %v", err)
	}
	if len(ranks) != 7 {
		t.Fatalf("Expected 7 ranks, got %d", len(ranks))
	}
	if ranks[0].Name != "E-Rank" || ranks[6].Name != "National Level" {
		t.Errorf("ranks not ordered by min level: %s .. %s", ranks[0].Name, ranks[6].Name)
	}
}

func TestPlayer_NotFoundAndDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetPlayer(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	createPlayer(t, store, "jinwoo")
	dup := &models.Player{Username: "jinwoo", Email: "other@example.com", PasswordHash: "x", Level: 1, RankID: 1}
	if err := store.CreatePlayer(ctx, dup); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("Expected ErrDuplicateRecord, got %v", err)
	}
}

func TestIncrementStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "hae-in")

	if err := store.IncrementStats(ctx, p.ID, map[string]int{models.StatStrength: 2, "stat_points": 3}); err != nil {
		t.Fatalf("IncrementStats failed: %v", err)
	}
	stats, err := store.GetStats(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Strength != 12 || stats.StatPoints != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := store.IncrementStats(ctx, p.ID, map[string]int{"level": 1}); err == nil {
		t.Error("Expected unknown column to be rejected")
	}
}

func TestTransaction_RollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "yoo-jinho")

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.UpdatePlayer(ctx, p.ID, map[string]any{"xp": 50}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	got, _ := store.GetPlayer(ctx, p.ID)
	if got.XP != 0 {
		t.Errorf("Expected rollback to keep xp 0, got %d", got.XP)
	}
}

func TestPlayerQuests_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "cha-hae-in")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	daily, _ := store.GetQuestTemplates(ctx, QuestTemplateFilter{QuestType: models.QuestDaily, ActiveOnly: true, Limit: 2})
	if len(daily) != 2 {
		t.Fatalf("Expected 2 daily templates, got %d", len(daily))
	}
	dungeon, _ := store.GetQuestTemplates(ctx, QuestTemplateFilter{QuestType: models.QuestDungeon})

	quests := []models.PlayerQuest{
		models.NewPlayerQuest(p.ID, daily[0], now, now.Add(24*time.Hour)),
		models.NewPlayerQuest(p.ID, daily[1], now, now.Add(-time.Hour)),
		models.NewPlayerQuest(p.ID, dungeon[0], now, now.Add(24*time.Hour)),
	}
	if err := store.CreatePlayerQuests(ctx, quests); err != nil {
		t.Fatalf("CreatePlayerQuests failed: %v", err)
	}

	incomplete := false
	active, err := store.GetPlayerQuests(ctx, p.ID, PlayerQuestFilter{Completed: &incomplete, DueAfter: &now})
	if err != nil {
		t.Fatalf("GetPlayerQuests failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active quests, got %d", len(active))
	}
	if active[0].QuestTemplate.Title == "" {
		t.Error("Expected QuestTemplate to be preloaded")
	}

	onlyDungeon, _ := store.GetPlayerQuests(ctx, p.ID, PlayerQuestFilter{QuestType: models.QuestDungeon})
	if len(onlyDungeon) != 1 || onlyDungeon[0].QuestTemplate.QuestType != models.QuestDungeon {
		t.Errorf("Expected one dungeon quest, got %+v", onlyDungeon)
	}

	n, err := store.DeletePlayerQuests(ctx, p.ID, PlayerQuestFilter{Completed: &incomplete, QuestType: models.QuestDaily})
	if err != nil || n != 2 {
		t.Errorf("Expected 2 deleted daily quests, got %d (%v)", n, err)
	}

	if _, err := store.GetPlayerQuest(ctx, p.ID+1, onlyDungeon[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another player's quest, got %v", err)
	}
}

func TestUpdateDungeonProgress_Conditional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "baek")

	dungeons, _ := store.ListDungeons(ctx, true)
	run := &models.DungeonProgress{PlayerID: p.ID, DungeonID: dungeons[0].ID, StartedAt: time.Now(), Status: state.DungeonInProgress}
	if err := store.CreateDungeonProgress(ctx, run); err != nil {
		t.Fatalf("CreateDungeonProgress failed: %v", err)
	}

	ok, err := store.UpdateDungeonProgress(ctx, run.ID, state.DungeonInProgress, map[string]any{"status": state.DungeonFailed})
	if err != nil || !ok {
		t.Fatalf("Expected first transition to apply, got %v %v", ok, err)
	}
	ok, err = store.UpdateDungeonProgress(ctx, run.ID, state.DungeonInProgress, map[string]any{"status": state.DungeonCompleted})
	if err != nil || ok {
		t.Errorf("Expected second transition to be a no-op, got %v %v", ok, err)
	}

	n, _ := store.CountDungeonProgress(ctx, p.ID, state.DungeonFailed)
	if n != 1 {
		t.Errorf("Expected 1 failed run, got %d", n)
	}
	runs, _ := store.GetDungeonProgress(ctx, p.ID, DungeonProgressFilter{ID: run.ID})
	if len(runs) != 1 || runs[0].Dungeon.Name == "" {
		t.Errorf("Expected preloaded run, got %+v", runs)
	}
}

func TestInsertPlayerAchievement_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "thomas")
	achievements, _ := store.GetAchievements(ctx)

	pa := &models.PlayerAchievement{PlayerID: p.ID, AchievementID: achievements[0].ID, UnlockedAt: time.Now()}
	if err := store.InsertPlayerAchievement(ctx, pa); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	again := &models.PlayerAchievement{PlayerID: p.ID, AchievementID: achievements[0].ID, UnlockedAt: time.Now()}
	if err := store.InsertPlayerAchievement(ctx, again); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("Expected ErrDuplicateRecord, got %v", err)
	}
}

func TestInventory_AddAndConsume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := createPlayer(t, store, "go-gunhee")
	items, _ := store.GetItemsByName(ctx, []string{"Minor Potion"})
	if len(items) != 1 {
		t.Fatalf("Expected seeded item, got %d", len(items))
	}

	now := time.Now()
	store.AddInventory(ctx, p.ID, items[0].ID, 1, now)
	store.AddInventory(ctx, p.ID, items[0].ID, 1, now)

	entries, _ := store.ListInventory(ctx, p.ID)
	if len(entries) != 1 || entries[0].Quantity != 2 {
		t.Fatalf("Expected one stacked entry of 2, got %+v", entries)
	}

	if err := store.ConsumeInventory(ctx, entries[0].ID); err != nil {
		t.Fatalf("ConsumeInventory failed: %v", err)
	}
	if err := store.ConsumeInventory(ctx, entries[0].ID); err != nil {
		t.Fatalf("ConsumeInventory failed: %v", err)
	}
	if _, err := store.GetInventoryEntry(ctx, p.ID, entries[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected entry to be removed, got %v", err)
	}
}

func TestLeaderboard_Order(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := createPlayer(t, store, "a")
	b := createPlayer(t, store, "b")
	c := createPlayer(t, store, "c")
	store.UpdatePlayer(ctx, a.ID, map[string]any{"level": 5, "xp": 10})
	store.UpdatePlayer(ctx, b.ID, map[string]any{"level": 5, "xp": 40})
	store.UpdatePlayer(ctx, c.ID, map[string]any{"level": 2})

	board, err := store.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board) != 3 || board[0].Username != "b" || board[1].Username != "a" || board[2].Username != "c" {
		t.Fatalf("unexpected order: %+v", board)
	}
	if board[0].RankName != "E-Rank" {
		t.Errorf("Expected joined rank name, got %q", board[0].RankName)
	}
}
