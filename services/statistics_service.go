// services/statistics_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/state"
)

const dateLayout = "2006-01-02"

type StatisticsService struct {
	*core
}

// DayActivity 一天内的活动汇总
type DayActivity struct {
	Date          string   `json:"date"`
	TotalXP       int      `json:"total_xp"`
	ActivityCount int      `json:"activity_count"`
	Activities    []string `json:"activities"`
}

// QuestTypeStats 按任务类型统计完成情况
type QuestTypeStats struct {
	QuestType string `json:"quest_type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// CalendarDay 某天完成的任务数
type CalendarDay struct {
	Date            string `json:"date"`
	QuestsCompleted int    `json:"quests_completed"`
}

type Counts struct {
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

// Summary 总体进度
type Summary struct {
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	StreakDays int    `json:"streak_days"`
	Quests     Counts `json:"quests"`
	Dungeons   Counts `json:"dungeons"`
	TotalXP    int    `json:"total_xp"`
	WeeklyXP   int    `json:"weekly_xp"`
}

// Activity 最近 days 天每天的活动，按日期升序
func (s *StatisticsService) Activity(ctx context.Context, playerID uint, days int) ([]DayActivity, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", apperr.ErrInvalidArgument)
	}
	logs, err := s.store.ListActivity(ctx, playerID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}

	var out []DayActivity
	index := make(map[string]int)
	for _, l := range logs {
		day := l.CreatedAt.UTC().Format(dateLayout)
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DayActivity{Date: day})
		}
		out[i].TotalXP += l.XPGained
		out[i].ActivityCount++
		out[i].Activities = append(out[i].Activities, l.ActivityType)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// QuestStats 按任务类型统计完成数和总数
func (s *StatisticsService) QuestStats(ctx context.Context, playerID uint) ([]QuestTypeStats, error) {
	quests, err := s.store.GetPlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{})
	if err != nil {
		return nil, err
	}
	byType := make(map[string]*QuestTypeStats)
	for _, q := range quests {
		t := q.QuestTemplate.QuestType
		st, ok := byType[t]
		if !ok {
			st = &QuestTypeStats{QuestType: t}
			byType[t] = st
		}
		st.Total++
		if q.Completed {
			st.Completed++
		}
	}
	out := make([]QuestTypeStats, 0, len(byType))
	for _, st := range byType {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestType < out[j].QuestType })
	return out, nil
}

// Calendar 指定年月每天完成的任务数。year 或 month 为 0 时使用当前年月
func (s *StatisticsService) Calendar(ctx context.Context, playerID uint, year, month int) ([]CalendarDay, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", apperr.ErrInvalidArgument, month)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)
	completed := true
	quests, err := s.store.GetPlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{
		Completed:      &completed,
		CompletedFrom:  &from,
		CompletedUntil: &until,
	})
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]int)
	for _, q := range quests {
		if q.CompletedAt == nil {
			continue
		}
		perDay[q.CompletedAt.UTC().Format(dateLayout)]++
	}
	out := make([]CalendarDay, 0, len(perDay))
	for day, n := range perDay {
		out = append(out, CalendarDay{Date: day, QuestsCompleted: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Summary 玩家总体进度：任务、地下城、累计经验和近 7 天经验
func (s *StatisticsService) Summary(ctx context.Context, playerID uint) (*Summary, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Level: player.Level, XP: player.XP, StreakDays: player.StreakDays}

	if summary.Quests.Completed, err = s.store.CountCompletedQuests(ctx, playerID); err != nil {
		return nil, err
	}
	quests, err := s.store.GetPlayerQuests(ctx, playerID, persistence.PlayerQuestFilter{})
	if err != nil {
		return nil, err
	}
	summary.Quests.Total = int64(len(quests))

	if summary.Dungeons.Completed, err = s.store.CountDungeonProgress(ctx, playerID, state.DungeonCompleted); err != nil {
		return nil, err
	}
	if summary.Dungeons.Total, err = s.store.CountDungeonProgress(ctx, playerID, ""); err != nil {
		return nil, err
	}

	logs, err := s.store.ListActivity(ctx, playerID, time.Time{})
	if err != nil {
		return nil, err
	}
	weekAgo := s.now().AddDate(0, 0, -7)
	for _, l := range logs {
		summary.TotalXP += l.XPGained
		if !l.CreatedAt.Before(weekAgo) {
			summary.WeeklyXP += l.XPGained
		}
	}
	return summary, nil
}
