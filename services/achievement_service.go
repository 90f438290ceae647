// services/achievement_service.go
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/progression"
	"github.com/wfunc/arise/state"
)

type AchievementService struct {
	*core
}

// AchievementView 成就及其解锁状态
type AchievementView struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// List 所有成就，稀有度高的在前
func (s *AchievementService) List(ctx context.Context, playerID uint) ([]AchievementView, error) {
	achievements, err := s.store.GetAchievements(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.store.GetPlayerAchievements(ctx, playerID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[uint]time.Time, len(unlocked))
	for _, pa := range unlocked {
		unlockedAt[pa.AchievementID] = pa.UnlockedAt
	}

	views := make([]AchievementView, 0, len(achievements))
	for _, a := range achievements {
		v := AchievementView{Achievement: a}
		if at, ok := unlockedAt[a.ID]; ok {
			v.Unlocked, v.UnlockedAt = true, &at
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return models.RarityRank(views[i].Rarity) > models.RarityRank(views[j].Rarity)
	})
	return views, nil
}

// counters 收集成就判定需要的玩家数据
func counters(ctx context.Context, tx persistence.Store, player *models.Player) (progression.Counters, error) {
	quests, err := tx.CountCompletedQuests(ctx, player.ID)
	if err != nil {
		return progression.Counters{}, err
	}
	dungeons, err := tx.CountDungeonProgress(ctx, player.ID, state.DungeonCompleted)
	if err != nil {
		return progression.Counters{}, err
	}
	rank, err := rankName(ctx, tx, player.RankID)
	if err != nil {
		return progression.Counters{}, err
	}
	return progression.Counters{
		QuestsCompleted:   int(quests),
		DungeonsCompleted: int(dungeons),
		Level:             player.Level,
		StreakDays:        player.StreakDays,
		RankName:          rank,
	}, nil
}

// Check 判定并解锁满足条件的成就，返回本次新解锁的成就。
// 任一条件满足即解锁；已解锁的成就不会重复发放经验。
// 成就经验经过等级结算并计入指标，但不写活动记录也不广播
func (s *AchievementService) Check(ctx context.Context, playerID uint) ([]models.Achievement, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var (
		newly    []models.Achievement
		outcomes []XPOutcome
	)
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		newly, outcomes = nil, nil
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		c, err := counters(ctx, tx, player)
		if err != nil {
			return err
		}

		owned, err := tx.GetPlayerAchievements(ctx, playerID)
		if err != nil {
			return err
		}
		have := make(map[uint]bool, len(owned))
		for _, pa := range owned {
			have[pa.AchievementID] = true
		}

		achievements, err := tx.GetAchievements(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for _, a := range achievements {
			if have[a.ID] || !a.Requirement.Data().Satisfied(c) {
				continue
			}
			err := tx.InsertPlayerAchievement(ctx, &models.PlayerAchievement{
				PlayerID:      playerID,
				AchievementID: a.ID,
				UnlockedAt:    now,
			})
			if errors.Is(err, persistence.ErrDuplicateRecord) {
				continue
			}
			if err != nil {
				return err
			}
			if a.XPReward > 0 {
				out, err := applyXP(ctx, tx, player, a.XPReward)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, out)
			}
			newly = append(newly, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range newly {
		logger.Log.Infow("achievement unlocked", "player", playerID, "achievement", a.Name)
		s.metrics.AchievementUnlocked()
	}
	for _, out := range outcomes {
		s.recordXP(out)
	}
	if len(newly) > 0 {
		s.invalidateLeaderboard(ctx)
	}
	return newly, nil
}
