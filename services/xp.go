// services/xp.go
package services

import (
	"context"
	"errors"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/progression"
)

// XPOutcome 一次经验结算后的玩家状态
type XPOutcome struct {
	XPGained       int    `json:"xp_gained"`
	Level          int    `json:"level"`
	XP             int    `json:"xp"`
	LevelsGained   int    `json:"levels_gained"`
	StatPoints     int    `json:"stat_points_gained"`
	LeveledUp      bool   `json:"leveled_up"`
	RankID         uint   `json:"rank_id"`
	RankName       string `json:"rank_name,omitempty"`
	RankedUp       bool   `json:"ranked_up"`
	XPForNextLevel int    `json:"xp_for_next_level"`
}

// applyXP 是所有发放经验路径的唯一入口：结算等级、发放属性点、重新计算段位并写回。
// 会就地更新 player。必须在事务内调用。
func applyXP(ctx context.Context, tx persistence.Store, player *models.Player, amount int) (XPOutcome, error) {
	res, err := progression.ApplyXP(player.Level, player.XP, amount)
	if err != nil {
		return XPOutcome{}, err
	}

	ranks, err := tx.GetRanks(ctx)
	if err != nil {
		return XPOutcome{}, err
	}
	rank := progression.ResolveRank(toProgressionRanks(ranks), res.Level)

	fields := map[string]any{
		"level":   res.Level,
		"xp":      res.XP,
		"rank_id": rank.ID,
	}
	if err := tx.UpdatePlayer(ctx, player.ID, fields); err != nil {
		return XPOutcome{}, err
	}
	if res.StatPoints > 0 {
		if err := tx.IncrementStats(ctx, player.ID, map[string]int{"stat_points": res.StatPoints}); err != nil {
			return XPOutcome{}, err
		}
	}

	out := XPOutcome{
		XPGained:       amount,
		Level:          res.Level,
		XP:             res.XP,
		LevelsGained:   res.LevelsGained,
		StatPoints:     res.StatPoints,
		LeveledUp:      res.LeveledUp(),
		RankID:         rank.ID,
		RankName:       rank.Name,
		RankedUp:       rank.ID != player.RankID,
		XPForNextLevel: progression.Threshold(res.Level),
	}
	player.Level, player.XP, player.RankID = res.Level, res.XP, rank.ID
	return out, nil
}

// events 升级和晋升段位的广播
func (o XPOutcome) events(username string) []Event {
	var events []Event
	if o.LeveledUp {
		events = append(events, activityEvent(Activity{Type: ActivityLevelUp, Player: username, NewLevel: o.Level}))
	}
	if o.RankedUp && o.RankName != "" {
		events = append(events, activityEvent(Activity{Type: ActivityRankUp, Player: username, NewRank: o.RankName}))
	}
	return events
}

func (c *core) recordXP(o XPOutcome) {
	c.metrics.XPGranted(o.XPGained)
	if o.LevelsGained > 0 {
		c.metrics.LevelsGained(o.LevelsGained)
	}
}

func toProgressionRanks(ranks []models.Rank) []progression.Rank {
	out := make([]progression.Rank, len(ranks))
	for i, r := range ranks {
		out[i] = progression.Rank{ID: r.ID, Name: r.Name, MinLevel: r.MinLevel}
	}
	return out
}

// rankName 查询段位名，段位不存在时返回空串
func rankName(ctx context.Context, store persistence.Store, id uint) (string, error) {
	rank, err := store.GetRank(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rank.Name, nil
}
