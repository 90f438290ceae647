package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/arise/apperr"
)

func TestRegisterAndVerify(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	res, err := env.svc.Auth.Register(ctx, " jinwoo ", "jinwoo@example.com", "shadow")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Token == "" || res.Player.Username != "jinwoo" || res.Player.Level != 1 {
		t.Fatalf("unexpected register result: %+v", res)
	}
	if res.Player.PasswordHash == "shadow" {
		t.Error("Expected password to be hashed")
	}
	if env.stats(t, res.Player.ID).Strength != 10 {
		t.Error("Expected default stats to be created")
	}
	active, _ := env.svc.Quest.ActiveQuests(ctx, res.Player.ID)
	if len(active) != 5 {
		t.Errorf("Expected 5 daily quests on register, got %d", len(active))
	}

	id, err := env.svc.Auth.Verify(res.Token)
	if err != nil || id != res.Player.ID {
		t.Errorf("Expected token for player %d, got %d (%v)", res.Player.ID, id, err)
	}
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	if _, err := env.svc.Auth.Register(ctx, "", "a@example.com", "pw"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := env.svc.Auth.Register(ctx, "a", "a@example.com", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := env.svc.Auth.Register(ctx, "a", "other@example.com", "pw"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate username, got %v", err)
	}
	if _, err := env.svc.Auth.Register(ctx, "b", "a@example.com", "pw"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestLogin_Streak(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	if _, err := env.svc.Auth.Register(ctx, "cha", "cha@example.com", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res, err := env.svc.Auth.Login(ctx, "cha@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Player.StreakDays != 1 {
		t.Errorf("Expected streak 1 on first login, got %d", res.Player.StreakDays)
	}

	env.clock.Advance(25 * time.Hour)
	res, _ = env.svc.Auth.Login(ctx, "cha@example.com", "pw")
	if res.Player.StreakDays != 2 {
		t.Errorf("Expected streak 2 the next day, got %d", res.Player.StreakDays)
	}

	env.clock.Advance(72 * time.Hour)
	res, _ = env.svc.Auth.Login(ctx, "cha@example.com", "pw")
	if res.Player.StreakDays != 1 {
		t.Errorf("Expected streak reset after a gap, got %d", res.Player.StreakDays)
	}
	if got := env.player(t, res.Player.ID); got.StreakDays != 1 || got.LastLogin == nil {
		t.Errorf("Expected login to be persisted, got %+v", got)
	}

	if _, err := env.svc.Auth.Login(ctx, "cha@example.com", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, "nobody@example.com", "pw"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for unknown email, got %v", err)
	}
}

func TestLogin_ConcurrentSameDay(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	reg, err := env.svc.Auth.Register(ctx, "hae", "hae@example.com", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, "hae@example.com", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	env.clock.Advance(25 * time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		streaks []int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.svc.Auth.Login(ctx, "hae@example.com", "pw")
			if err != nil {
				t.Errorf("Login failed: %v", err)
				return
			}
			mu.Lock()
			streaks = append(streaks, res.Player.StreakDays)
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, s := range streaks {
		if s != 2 {
			t.Errorf("Expected every login to see streak 2, got %v", streaks)
			break
		}
	}
	if got := env.player(t, reg.Player.ID); got.StreakDays != 2 {
		t.Errorf("Expected stored streak 2, got %d", got.StreakDays)
	}
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	tests := []struct {
		name    string
		current int
		last    *time.Time
		want    int
	}{
		{"first login", 0, nil, 1},
		{"same day", 3, at(5 * time.Hour), 3},
		{"next day", 3, at(30 * time.Hour), 4},
		{"gap", 3, at(50 * time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextStreak(tt.current, tt.last, now); got != tt.want {
				t.Errorf("nextStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	env := newTestEnv(t, Config{TokenTTL: time.Hour})
	ctx := context.Background()
	res, err := env.svc.Auth.Register(ctx, "tok", "tok@example.com", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := env.svc.Auth.Verify("garbage"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for garbage token, got %v", err)
	}

	other := New(env.store, Config{JWTSecret: "other-secret"}, WithClock(env.clock.Now))
	if _, err := other.Auth.Verify(res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for foreign signature, got %v", err)
	}

	env.clock.Advance(2 * time.Hour)
	if _, err := env.svc.Auth.Verify(res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for expired token, got %v", err)
	}
}
