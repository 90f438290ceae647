package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  http_address: ":9000"
database:
  driver: sqlite
  sqlite:
    path: ":memory:"
game:
  dungeon_sweep_interval: 30s
  auto_check_achievements: true
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("Expected :9000, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLite.Path != ":memory:" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Game.DungeonSweepInterval != 30*time.Second || !cfg.Game.AutoCheckAchievements {
		t.Errorf("unexpected game config: %+v", cfg.Game)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Game.DailyQuestLimit != 5 {
		t.Errorf("Expected default daily quest limit 5, got %d", cfg.Game.DailyQuestLimit)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.RPCAddress != ":8081" {
		t.Errorf("Expected default rpc address, got %s", cfg.Server.RPCAddress)
	}
	if cfg.Cache.LeaderboardTTL != 30*time.Second {
		t.Errorf("Expected default leaderboard ttl, got %v", cfg.Cache.LeaderboardTTL)
	}
}
