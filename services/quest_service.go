// services/quest_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/state"
)

type QuestService struct {
	*core
	achievements *AchievementService
}

// QuestProgress 更新任务进度的结果
type QuestProgress struct {
	QuestID   uint                 `json:"quest_id"`
	Progress  int                  `json:"progress"`
	Target    int                  `json:"target"`
	Completed bool                 `json:"completed"`
	XPGained  int                  `json:"xpGained"`
	Outcome   *XPOutcome           `json:"outcome,omitempty"`
	Unlocked  []models.Achievement `json:"unlocked_achievements,omitempty"`
}

// ActiveQuests 未完成且未过期的任务，按类型和截止时间排序
func (s *QuestService) ActiveQuests(ctx context.Context, playerID uint) ([]models.PlayerQuest, error) {
	now := s.now()
	incomplete := false
	quests, err := s.store.GetPlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{
		Completed: &incomplete,
		DueAfter:  &now,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quests, func(i, j int) bool {
		a, b := quests[i], quests[j]
		if a.QuestTemplate.QuestType != b.QuestTemplate.QuestType {
			return a.QuestTemplate.QuestType < b.QuestTemplate.QuestType
		}
		return dueBefore(a.DueDate, b.DueDate)
	})
	return quests, nil
}

func dueBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// Templates 某一类型的有效任务模板
func (s *QuestService) Templates(ctx context.Context, questType string) ([]models.QuestTemplate, error) {
	if !models.ValidQuestType(questType) {
		return nil, fmt.Errorf("%w: unknown quest type %q", apperr.ErrInvalidArgument, questType)
	}
	return s.store.GetQuestTemplates(ctx, persistence.QuestTemplateFilter{QuestType: questType, ActiveOnly: true})
}

// CompletedQuests 最近 days 天内完成的任务，最新的在前
func (s *QuestService) CompletedQuests(ctx context.Context, playerID uint, days int) ([]models.PlayerQuest, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", apperr.ErrInvalidArgument)
	}
	completed := true
	from := s.now().AddDate(0, 0, -days)
	quests, err := s.store.GetPlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{
		Completed:     &completed,
		CompletedFrom: &from,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quests, func(i, j int) bool {
		return dueBefore(quests[j].CompletedAt, quests[i].CompletedAt)
	})
	return quests, nil
}

// assignDaily 分配有效的每日任务，24 小时后到期。limit <= 0 表示全部
func (s *QuestService) assignDaily(ctx context.Context, tx persistence.Store, playerID uint, limit int) (int, error) {
	templates, err := tx.GetQuestTemplates(ctx, persistence.QuestTemplateFilter{
		QuestType:  models.QuestDaily,
		ActiveOnly: true,
		Limit:      limit,
	})
	if err != nil {
		return 0, err
	}
	now := s.now()
	quests := make([]models.PlayerQuest, 0, len(templates))
	for _, tpl := range templates {
		quests = append(quests, models.NewPlayerQuest(playerID, tpl, now, now.Add(24*time.Hour)))
	}
	if err := tx.CreatePlayerQuests(ctx, quests); err != nil {
		return 0, err
	}
	return len(quests), nil
}

// RefreshDaily 删除未完成的每日任务并重新分配所有有效的每日任务
func (s *QuestService) RefreshDaily(ctx context.Context, playerID uint) (int, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var assigned int
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		if _, err := tx.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		incomplete := false
		if _, err := tx.DeletePlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{
			Completed: &incomplete,
			QuestType: models.QuestDaily,
		}); err != nil {
			return err
		}
		var err error
		assigned, err = s.assignDaily(ctx, tx, playerID, 0)
		return err
	})
	return assigned, err
}

// UpdateProgress 更新任务进度。进度被截断到目标值；达到目标时完成任务并发放奖励。
// 已完成的任务再次提交不会重复发奖；过期未完成的任务返回 Conflict。
func (s *QuestService) UpdateProgress(ctx context.Context, playerID, questID uint, value int) (*QuestProgress, error) {
	if value < 0 {
		return nil, fmt.Errorf("%w: progress must not be negative", apperr.ErrInvalidArgument)
	}

	result, player, tpl, err := s.progress(ctx, playerID, questID, value)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return result, nil
	}

	logger.Log.Infow("quest completed", "player", playerID, "quest", questID, "xp", result.XPGained)
	s.metrics.QuestCompleted(tpl.QuestType)
	s.recordXP(*result.Outcome)
	s.invalidateLeaderboard(ctx)
	events := []Event{activityEvent(Activity{
		Type:   ActivityQuestCompleted,
		Player: player.Username,
		Quest:  tpl.Title,
		XP:     result.XPGained,
	})}
	s.publish(append(events, result.Outcome.events(player.Username)...))

	if s.cfg.AutoCheckAchievements {
		unlocked, err := s.achievements.Check(ctx, playerID)
		if err != nil {
			logger.Log.Warnw("achievement check after quest failed", "player", playerID, "error", err)
		}
		result.Unlocked = unlocked
	}
	return result, nil
}

// progress 在玩家锁和事务内更新进度。返回的 player 仅在本次完成任务时非空
func (s *QuestService) progress(ctx context.Context, playerID, questID uint, value int) (*QuestProgress, *models.Player, models.QuestTemplate, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var (
		result    QuestProgress
		player    *models.Player
		tpl       models.QuestTemplate
		completed bool
	)
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		quest, err := tx.GetPlayerQuest(ctx, playerID, questID)
		if err != nil {
			return fmt.Errorf("quest %d: %w", questID, err)
		}
		tpl = quest.QuestTemplate
		result = QuestProgress{QuestID: quest.ID, Progress: quest.Progress, Target: quest.Target, Completed: quest.Completed}
		if quest.Completed {
			return nil
		}
		now := s.now()
		if quest.Expired(now) {
			return fmt.Errorf("%w: quest %d expired at %s", apperr.ErrConflict, questID, quest.DueDate.Format(time.RFC3339))
		}

		progress := min(value, quest.Target)
		fields := map[string]any{"progress": progress}
		completed = progress >= quest.Target
		if completed {
			if _, err := state.Quest.Transition(state.QuestStatus(quest.Progress, false), state.QuestCompleted); err != nil {
				return err
			}
			fields["completed"] = true
			fields["completed_at"] = now
		}
		if err := tx.UpdatePlayerQuest(ctx, quest.ID, fields); err != nil {
			return err
		}
		result.Progress, result.Completed = progress, completed
		if !completed {
			return nil
		}

		player, err = tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		out, err := applyXP(ctx, tx, player, tpl.XPReward)
		if err != nil {
			return err
		}
		result.XPGained, result.Outcome = tpl.XPReward, &out

		if tpl.HasStatBonus() {
			if models.ValidStat(tpl.StatBonusType) {
				if err := tx.IncrementStats(ctx, playerID, map[string]int{tpl.StatBonusType: tpl.StatBonusAmount}); err != nil {
					return err
				}
			} else {
				logger.Log.Warnw("quest template has unknown stat bonus", "template", tpl.ID, "stat", tpl.StatBonusType)
			}
		}

		if err := tx.InsertActivityLog(ctx, &models.ActivityLog{
			PlayerID:     playerID,
			ActivityType: models.ActivityQuestComplete,
			XPGained:     tpl.XPReward,
			Details:      map[string]any{"quest_id": quest.ID},
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		if tpl.QuestType == models.QuestDungeon {
			return countDungeonQuest(ctx, tx, playerID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, tpl, err
	}
	if !completed {
		return &result, nil, tpl, nil
	}
	return &result, player, tpl, nil
}

// countDungeonQuest 进行中的地下城挑战完成任务数加一
func countDungeonQuest(ctx context.Context, tx persistence.Store, playerID uint) error {
	runs, err := tx.GetDungeonProgress(ctx, playerID, persistence.DungeonProgressFilter{Status: state.DungeonInProgress})
	if err != nil || len(runs) == 0 {
		return err
	}
	run := runs[0]
	_, err = tx.UpdateDungeonProgress(ctx, run.ID, state.DungeonInProgress, map[string]any{
		"quests_completed": run.QuestsCompleted + 1,
	})
	return err
}
