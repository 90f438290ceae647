package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
)

func TestUpdateProgress_CompletesOnce(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "jinwoo")
	quest := env.dailyQuests(t, p.ID)["Push-ups"]

	res, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 5)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if !res.Completed || res.Progress != 1 || res.XPGained != 100 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if env.stats(t, p.ID).Strength != 11 {
		t.Errorf("Expected strength bonus to be applied")
	}
	if got := env.player(t, p.ID); got.XP != 100 || got.Level != 1 {
		t.Errorf("Expected L1/100, got L%d/%d", got.Level, got.XP)
	}

	// 再次提交不会重复发放奖励
	again, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 5)
	if err != nil {
		t.Fatalf("second UpdateProgress failed: %v", err)
	}
	if !again.Completed || again.XPGained != 0 {
		t.Errorf("Expected idempotent completion, got %+v", again)
	}
	if got := env.player(t, p.ID); got.XP != 100 {
		t.Errorf("Expected xp to stay 100, got %d", got.XP)
	}

	logs, _ := env.store.ListActivity(ctx, p.ID, time.Time{})
	if len(logs) != 1 || logs[0].ActivityType != models.ActivityQuestComplete {
		t.Fatalf("Expected one quest_complete log, got %+v", logs)
	}
	if fmt.Sprint(logs[0].Details["quest_id"]) != fmt.Sprint(quest.ID) {
		t.Errorf("Expected quest_id %d in details, got %v", quest.ID, logs[0].Details)
	}
	if acts := env.bc.activities(); len(acts) != 1 || acts[0] != ActivityQuestCompleted {
		t.Errorf("Expected one quest_completed event, got %v", acts)
	}
}

func TestUpdateProgress_PartialAndClamp(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "cha")
	quest := env.dailyQuests(t, p.ID)["Read"]

	res, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 10)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if res.Completed || res.Progress != 10 || res.XPGained != 0 {
		t.Errorf("unexpected partial result: %+v", res)
	}

	res, err = env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 500)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if !res.Completed || res.Progress != 30 || res.XPGained != 60 {
		t.Errorf("Expected clamped completion, got %+v", res)
	}
}

func TestUpdateProgress_Errors(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "owner")
	other := env.newPlayer(t, "other")
	quest := env.dailyQuests(t, p.ID)["Squats"]

	if _, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, -1); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := env.svc.Quest.UpdateProgress(ctx, other.ID, quest.ID, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another player's quest, got %v", err)
	}
	if _, err := env.svc.Quest.UpdateProgress(ctx, p.ID, 9999, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing quest, got %v", err)
	}

	env.clock.Advance(25 * time.Hour)
	if _, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 1); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict for expired quest, got %v", err)
	}
	active, _ := env.svc.Quest.ActiveQuests(ctx, p.ID)
	if len(active) != 0 {
		t.Errorf("Expected expired quests to be filtered, got %d", len(active))
	}
	if got := env.player(t, p.ID); got.XP != 0 {
		t.Errorf("Expected no xp for expired quest, got %d", got.XP)
	}
}

func TestRefreshDaily_ReplacesIncomplete(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "daily")

	quests := env.dailyQuests(t, p.ID)
	if len(quests) != 5 {
		t.Fatalf("Expected 5 daily quests, got %d", len(quests))
	}
	if _, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quests["Running"].ID, 1); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	n, err := env.svc.Quest.RefreshDaily(ctx, p.ID)
	if err != nil || n != 5 {
		t.Fatalf("Expected 5 assigned, got %d (%v)", n, err)
	}
	all, _ := env.store.GetPlayerQuests(ctx, p.ID, persistence.PlayerQuestFilter{})
	if len(all) != 6 {
		t.Errorf("Expected 5 fresh quests plus the completed one, got %d", len(all))
	}

	completed, err := env.svc.Quest.CompletedQuests(ctx, p.ID, 7)
	if err != nil || len(completed) != 1 {
		t.Errorf("Expected 1 completed quest, got %d (%v)", len(completed), err)
	}
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	daily, err := env.svc.Quest.Templates(ctx, models.QuestDaily)
	if err != nil || len(daily) != 5 {
		t.Errorf("Expected 5 daily templates, got %d (%v)", len(daily), err)
	}
	if _, err := env.svc.Quest.Templates(ctx, "monthly"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateProgress_AutoCheckAchievements(t *testing.T) {
	env := newTestEnv(t, Config{AutoCheckAchievements: true})
	ctx := context.Background()
	p := env.newPlayer(t, "auto")
	quest := env.dailyQuests(t, p.ID)["Push-ups"]

	res, err := env.svc.Quest.UpdateProgress(ctx, p.ID, quest.ID, 1)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].Name != "First Step" {
		t.Errorf("Expected First Step to unlock, got %+v", res.Unlocked)
	}
}
