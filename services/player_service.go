// services/player_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/progression"
)

type PlayerService struct {
	*core
}

// Profile 玩家资料：基本信息、属性、段位和升级进度
type Profile struct {
	models.Player
	Stats          *models.PlayerStats `json:"stats"`
	RankName       string              `json:"rank_name"`
	RankColor      string              `json:"rank_color"`
	XPForNextLevel int                 `json:"xp_for_next_level"`
	XPProgress     float64             `json:"xp_progress"`
}

// GetProfile 获取玩家信息和属性
func (s *PlayerService) GetProfile(ctx context.Context, playerID uint) (*Profile, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", playerID, err)
	}
	stats, err := s.store.GetStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("stats of player %d: %w", playerID, err)
	}

	profile := &Profile{
		Player:         *player,
		Stats:          stats,
		XPForNextLevel: progression.Threshold(player.Level),
		XPProgress:     progression.Progress(player.Level, player.XP),
	}
	rank, err := s.store.GetRank(ctx, player.RankID)
	switch {
	case err == nil:
		profile.RankName, profile.RankColor = rank.Name, rank.Color
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return profile, nil
}

// GrantXP 直接给玩家加经验（原子操作），记录 xp_gain 活动
func (s *PlayerService) GrantXP(ctx context.Context, playerID uint, amount int) (*XPOutcome, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: xp amount must not be negative", apperr.ErrInvalidArgument)
	}

	unlock := s.locks.lock(playerID)
	defer unlock()

	var (
		out    XPOutcome
		player *models.Player
	)
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		var err error
		player, err = tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if out, err = applyXP(ctx, tx, player, amount); err != nil {
			return err
		}
		return tx.InsertActivityLog(ctx, &models.ActivityLog{
			PlayerID:     playerID,
			ActivityType: models.ActivityXPGain,
			XPGained:     amount,
			CreatedAt:    s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Infow("xp granted", "player", playerID, "amount", amount, "level", out.Level)
	s.recordXP(out)
	s.invalidateLeaderboard(ctx)
	s.publish(out.events(player.Username))
	return &out, nil
}

// AllocateStat 消耗属性点提升一项属性
func (s *PlayerService) AllocateStat(ctx context.Context, playerID uint, stat string, amount int) (*models.PlayerStats, error) {
	if !models.ValidStat(stat) {
		return nil, fmt.Errorf("%w: invalid stat %q", apperr.ErrInvalidArgument, stat)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperr.ErrInvalidArgument)
	}

	unlock := s.locks.lock(playerID)
	defer unlock()

	var stats *models.PlayerStats
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		current, err := tx.GetStats(ctx, playerID)
		if err != nil {
			return err
		}
		if current.StatPoints < amount {
			return fmt.Errorf("%w: not enough stat points (%d < %d)", apperr.ErrPreconditionFailed, current.StatPoints, amount)
		}
		if err := tx.IncrementStats(ctx, playerID, map[string]int{stat: amount, "stat_points": -amount}); err != nil {
			return err
		}
		stats, err = tx.GetStats(ctx, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Leaderboard 返回前 limit 名，按等级、经验降序。配置了缓存时优先读缓存
func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}

	if s.leaderboard != nil {
		entries, ok, err := s.leaderboard.GetLeaderboard(ctx)
		if err != nil {
			logger.Log.Warnw("read leaderboard cache failed", "error", err)
		}
		if ok {
			return head(entries, limit), nil
		}
	}

	entries, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.SetLeaderboard(ctx, entries); err != nil {
			logger.Log.Warnw("write leaderboard cache failed", "error", err)
		}
	}
	return head(entries, limit), nil
}

func head(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
