// services/dungeon_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/state"
)

type DungeonService struct {
	*core
}

// DungeonView 地下城列表项
type DungeonView struct {
	models.Dungeon
	Unlocked       bool  `json:"unlocked"`
	TimesCompleted int64 `json:"times_completed"`
}

// ActiveRun 进行中的挑战。Expired 为 true 表示本次读取时已超时并被判定失败
type ActiveRun struct {
	models.DungeonProgress
	ExpiresAt     time.Time `json:"expires_at"`
	Expired       bool      `json:"expired,omitempty"`
	TimeRemaining int64     `json:"time_remaining"` // 毫秒
}

// StartResult 开始挑战的结果
type StartResult struct {
	ProgressID uint                 `json:"progress_id"`
	Dungeon    models.Dungeon       `json:"dungeon"`
	Quests     []models.PlayerQuest `json:"quests"`
	ExpiresAt  time.Time            `json:"expires_at"`
}

// CompleteResult 完成挑战的结果
type CompleteResult struct {
	XPGained int                   `json:"xp_gained"`
	Rewards  models.DungeonRewards `json:"rewards"`
	Outcome  XPOutcome             `json:"outcome"`
}

// List 所有开放的地下城，附带是否解锁和完成次数
func (s *DungeonService) List(ctx context.Context, playerID uint) ([]DungeonView, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	dungeons, err := s.store.ListDungeons(ctx, true)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountDungeonCompletions(ctx, playerID)
	if err != nil {
		return nil, err
	}

	views := make([]DungeonView, 0, len(dungeons))
	for _, d := range dungeons {
		views = append(views, DungeonView{
			Dungeon:        d,
			Unlocked:       player.Level >= d.RequiredLevel,
			TimesCompleted: counts[d.ID],
		})
	}
	return views, nil
}

// expireIfOverdue 把已超时的进行中挑战迁移到 failed。
// 条件更新保证同一挑战只会失败一次，返回本次调用是否完成了迁移
func (c *core) expireIfOverdue(ctx context.Context, tx persistence.Store, run *models.DungeonProgress, now time.Time) (bool, error) {
	if !run.Overdue(now) {
		return false, nil
	}
	if _, err := state.Dungeon.Transition(run.Status, state.DungeonFailed); err != nil {
		return false, err
	}
	ok, err := tx.UpdateDungeonProgress(ctx, run.ID, state.DungeonInProgress, map[string]any{
		"status": state.DungeonFailed,
	})
	if err != nil {
		return false, err
	}
	run.Status = state.DungeonFailed
	if ok {
		logger.Log.Infow("dungeon run expired", "player", run.PlayerID, "run", run.ID, "dungeon", run.DungeonID)
		c.metrics.DungeonFinished(string(state.DungeonFailed))
	}
	return ok, nil
}

// Active 返回玩家进行中的挑战，没有时返回 nil。
// 读取时如果已超时，会把挑战判定为失败并返回 Expired=true
func (s *DungeonService) Active(ctx context.Context, playerID uint) (*ActiveRun, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	runs, err := s.store.GetDungeonProgress(ctx, playerID, persistence.DungeonProgressFilter{Status: state.DungeonInProgress})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}

	run := runs[0]
	now := s.now()
	view := &ActiveRun{DungeonProgress: run, ExpiresAt: run.ExpiresAt()}
	if run.Overdue(now) {
		if _, err := s.expireIfOverdue(ctx, s.store, &view.DungeonProgress, now); err != nil {
			return nil, err
		}
		view.Expired = true
		return view, nil
	}
	view.TimeRemaining = max(0, view.ExpiresAt.Sub(now).Milliseconds())
	return view, nil
}

// expireStale 让玩家所有已超时的挑战失败
func (s *DungeonService) expireStale(ctx context.Context, playerID uint, now time.Time) error {
	runs, err := s.store.GetDungeonProgress(ctx, playerID, persistence.DungeonProgressFilter{Status: state.DungeonInProgress})
	if err != nil {
		return err
	}
	for i := range runs {
		if _, err := s.expireIfOverdue(ctx, s.store, &runs[i], now); err != nil {
			return err
		}
	}
	return nil
}

// Start 开始挑战地下城并分配地下城任务
func (s *DungeonService) Start(ctx context.Context, playerID, dungeonID uint) (*StartResult, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	now := s.now()
	if err := s.expireStale(ctx, playerID, now); err != nil {
		return nil, err
	}

	var result StartResult
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		active, err := tx.CountDungeonProgress(ctx, playerID, state.DungeonInProgress)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: already in an active dungeon", apperr.ErrConflict)
		}

		dungeon, err := tx.GetDungeon(ctx, dungeonID)
		if err != nil {
			return fmt.Errorf("dungeon %d: %w", dungeonID, err)
		}
		if !dungeon.IsActive {
			return fmt.Errorf("dungeon %d is closed: %w", dungeonID, apperr.ErrNotFound)
		}

		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if player.Level < dungeon.RequiredLevel {
			return fmt.Errorf("%w: level %d below required %d", apperr.ErrPreconditionFailed, player.Level, dungeon.RequiredLevel)
		}

		run := &models.DungeonProgress{
			PlayerID:  playerID,
			DungeonID: dungeon.ID,
			StartedAt: now,
			Status:    state.DungeonInProgress,
		}
		if err := tx.CreateDungeonProgress(ctx, run); err != nil {
			return err
		}

		due := now.Add(time.Duration(dungeon.TimeLimitHours) * time.Hour)
		var quests []models.PlayerQuest
		if dungeon.QuestCount > 0 {
			templates, err := tx.GetQuestTemplates(ctx, persistence.QuestTemplateFilter{
				QuestType:  models.QuestDungeon,
				ActiveOnly: true,
				Limit:      dungeon.QuestCount,
			})
			if err != nil {
				return err
			}
			for _, tpl := range templates {
				quests = append(quests, models.NewPlayerQuest(playerID, tpl, now, due))
			}
			if err := tx.CreatePlayerQuests(ctx, quests); err != nil {
				return err
			}
		}

		result = StartResult{ProgressID: run.ID, Dungeon: *dungeon, Quests: quests, ExpiresAt: due}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Infow("dungeon started", "player", playerID, "dungeon", dungeonID, "run", result.ProgressID)
	return &result, nil
}

// Complete 完成进行中的挑战并发放奖励。已超时的挑战会被判定失败并返回 NotFound
func (s *DungeonService) Complete(ctx context.Context, playerID, progressID uint) (*CompleteResult, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var (
		result  CompleteResult
		player  *models.Player
		dungeon models.Dungeon
		expired bool
	)
	now := s.now()
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		runs, err := tx.GetDungeonProgress(ctx, playerID, persistence.DungeonProgressFilter{
			ID:     progressID,
			Status: state.DungeonInProgress,
		})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("active dungeon run %d: %w", progressID, apperr.ErrNotFound)
		}
		run := runs[0]
		dungeon = run.Dungeon

		// 超时的挑战提交为失败，事务正常提交
		if run.Overdue(now) {
			expired = true
			_, err := s.expireIfOverdue(ctx, tx, &run, now)
			return err
		}

		if _, err := state.Dungeon.Transition(run.Status, state.DungeonCompleted); err != nil {
			return err
		}
		ok, err := tx.UpdateDungeonProgress(ctx, run.ID, state.DungeonInProgress, map[string]any{
			"status":       state.DungeonCompleted,
			"completed_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("active dungeon run %d: %w", progressID, apperr.ErrNotFound)
		}

		player, err = tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		out, err := applyXP(ctx, tx, player, dungeon.XPReward)
		if err != nil {
			return err
		}

		rewards := dungeon.Rewards.Data()
		if rewards.StatPoints > 0 {
			if err := tx.IncrementStats(ctx, playerID, map[string]int{"stat_points": rewards.StatPoints}); err != nil {
				return err
			}
		}
		if err := grantItems(ctx, tx, playerID, rewards.Items, now); err != nil {
			return err
		}

		if err := tx.InsertActivityLog(ctx, &models.ActivityLog{
			PlayerID:     playerID,
			ActivityType: models.ActivityDungeonComplete,
			XPGained:     dungeon.XPReward,
			Details:      map[string]any{"dungeon_id": dungeon.ID},
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		result = CompleteResult{XPGained: dungeon.XPReward, Rewards: rewards, Outcome: out}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, fmt.Errorf("dungeon run %d expired: %w", progressID, apperr.ErrNotFound)
	}

	logger.Log.Infow("dungeon completed", "player", playerID, "dungeon", dungeon.ID, "xp", result.XPGained)
	s.metrics.DungeonFinished(string(state.DungeonCompleted))
	s.recordXP(result.Outcome)
	s.invalidateLeaderboard(ctx)
	events := []Event{activityEvent(Activity{
		Type:    ActivityDungeonCompleted,
		Player:  player.Username,
		Dungeon: dungeon.Name,
		XP:      result.XPGained,
	})}
	s.publish(append(events, result.Outcome.events(player.Username)...))
	return &result, nil
}

// grantItems 按名称发放道具，重复的名称叠加数量，未知名称忽略
func grantItems(ctx context.Context, tx persistence.Store, playerID uint, names []string, now time.Time) error {
	if len(names) == 0 {
		return nil
	}
	items, err := tx.GetItemsByName(ctx, names)
	if err != nil {
		return err
	}
	byName := make(map[string]uint, len(items))
	for _, it := range items {
		byName[it.Name] = it.ID
	}
	quantity := make(map[uint]int)
	var order []uint
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			logger.Log.Warnw("reward item not found", "item", name)
			continue
		}
		if quantity[id] == 0 {
			order = append(order, id)
		}
		quantity[id]++
	}
	for _, id := range order {
		if err := tx.AddInventory(ctx, playerID, id, quantity[id], now); err != nil {
			return err
		}
	}
	return nil
}

// SweepExpired 让所有已超时的进行中挑战失败，返回本次迁移的数量
func (s *DungeonService) SweepExpired(ctx context.Context) (int, error) {
	runs, err := s.store.ListDungeonProgressByStatus(ctx, state.DungeonInProgress)
	if err != nil {
		return 0, err
	}
	now := s.now()
	expired := 0
	for i := range runs {
		run := &runs[i]
		if !run.Overdue(now) {
			continue
		}
		unlock := s.locks.lock(run.PlayerID)
		ok, err := s.expireIfOverdue(ctx, s.store, run, now)
		unlock()
		if err != nil {
			logger.Log.Warnw("expire dungeon run failed", "run", run.ID, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
