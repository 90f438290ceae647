package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Monitor) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMonitor_Recorder(t *testing.T) {
	m := NewMonitor("arise")

	m.XPGranted(150)
	m.XPGranted(50)
	m.LevelsGained(2)
	m.QuestCompleted("daily")
	m.QuestCompleted("daily")
	m.QuestCompleted("dungeon")
	m.DungeonFinished("failed")
	m.AchievementUnlocked()
	m.SetOnlinePlayers(3)

	out := scrape(t, m)
	for _, want := range []string{
		"arise_xp_granted_total 200",
		"arise_level_ups_total 2",
		`arise_quests_completed_total{type="daily"} 2`,
		`arise_quests_completed_total{type="dungeon"} 1`,
		`arise_dungeon_runs_total{status="failed"} 1`,
		"arise_achievements_unlocked_total 1",
		"arise_online_players 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	// 每个 Monitor 有自己的 registry，重复创建不会 panic
	a := NewMonitor("arise")
	b := NewMonitor("arise")
	a.AchievementUnlocked()
	if !strings.Contains(scrape(t, b), "arise_achievements_unlocked_total 0") {
		t.Error("monitors should not share collectors")
	}
}

func TestMonitor_HTTPAndWS(t *testing.T) {
	m := NewMonitor("arise")
	m.ObserveHTTP("GET", "/api/health", 200, 5*time.Millisecond)
	m.IncMessagesReceived()

	out := scrape(t, m)
	for _, want := range []string{
		`arise_http_request_duration_seconds_count{method="GET",route="/api/health",status="200"} 1`,
		"arise_ws_messages_received_total 1",
		"arise_uptime_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
