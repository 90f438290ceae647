package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
)

// twoDaysOfQuests completes Push-ups on 2024-03-10 and Squats plus Read on 2024-03-11.
func twoDaysOfQuests(t *testing.T, env *testEnv, playerID uint) {
	t.Helper()
	ctx := context.Background()
	day1 := env.dailyQuests(t, playerID)
	if _, err := env.svc.Quest.UpdateProgress(ctx, playerID, day1["Push-ups"].ID, 1); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	env.clock.Advance(24 * time.Hour)
	day2 := env.dailyQuests(t, playerID)
	for _, title := range []string{"Squats", "Read"} {
		q := day2[title]
		if _, err := env.svc.Quest.UpdateProgress(ctx, playerID, q.ID, q.Target); err != nil {
			t.Fatalf("UpdateProgress failed: %v", err)
		}
	}
}

func TestActivity_GroupsByDay(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "daily")
	twoDaysOfQuests(t, env, p.ID)

	days, err := env.svc.Statistics.Activity(ctx, p.ID, 7)
	if err != nil {
		t.Fatalf("Activity failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Expected 2 days, got %+v", days)
	}
	if days[0].Date != "2024-03-10" || days[0].TotalXP != 100 || days[0].ActivityCount != 1 {
		t.Errorf("unexpected first day: %+v", days[0])
	}
	if days[1].Date != "2024-03-11" || days[1].TotalXP != 160 || days[1].ActivityCount != 2 {
		t.Errorf("unexpected second day: %+v", days[1])
	}
	if days[1].Activities[0] != models.ActivityQuestComplete {
		t.Errorf("unexpected activity types: %v", days[1].Activities)
	}

	if _, err := env.svc.Statistics.Activity(ctx, p.ID, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestQuestStats(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "counter")
	twoDaysOfQuests(t, env, p.ID)

	stats, err := env.svc.Statistics.QuestStats(ctx, p.ID)
	if err != nil {
		t.Fatalf("QuestStats failed: %v", err)
	}
	// 第二天刷新后：1 个已完成 + 5 个新任务
	if len(stats) != 1 || stats[0].QuestType != models.QuestDaily || stats[0].Completed != 3 || stats[0].Total != 6 {
		t.Errorf("unexpected quest stats: %+v", stats)
	}
}

func TestCalendar(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "calendar")
	twoDaysOfQuests(t, env, p.ID)

	days, err := env.svc.Statistics.Calendar(ctx, p.ID, 0, 0)
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	if len(days) != 2 || days[0].QuestsCompleted != 1 || days[1].QuestsCompleted != 2 {
		t.Errorf("unexpected calendar: %+v", days)
	}

	feb, err := env.svc.Statistics.Calendar(ctx, p.ID, 2024, 2)
	if err != nil || len(feb) != 0 {
		t.Errorf("Expected empty February, got %+v (%v)", feb, err)
	}
	if _, err := env.svc.Statistics.Calendar(ctx, p.ID, 2024, 13); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	p := env.newPlayer(t, "summary")
	twoDaysOfQuests(t, env, p.ID)

	sum, err := env.svc.Statistics.Summary(ctx, p.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Quests.Completed != 3 || sum.Quests.Total != 6 {
		t.Errorf("unexpected quest counts: %+v", sum.Quests)
	}
	if sum.TotalXP != 260 || sum.WeeklyXP != 260 {
		t.Errorf("Expected 260 xp total and weekly, got %d/%d", sum.TotalXP, sum.WeeklyXP)
	}
	// 260 xp: 101 -> L2, 108 -> L3, 51 left
	if sum.Level != 3 || sum.XP != 51 {
		t.Errorf("Expected L3/51, got L%d/%d", sum.Level, sum.XP)
	}

	env.clock.Advance(8 * 24 * time.Hour)
	sum, _ = env.svc.Statistics.Summary(ctx, p.ID)
	if sum.TotalXP != 260 || sum.WeeklyXP != 0 {
		t.Errorf("Expected weekly xp to roll off, got %d/%d", sum.TotalXP, sum.WeeklyXP)
	}
}
