// services/services.go
package services

import (
	"context"
	"time"

	"github.com/wfunc/arise/broadcast"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/network"
	"github.com/wfunc/arise/persistence"
)

// EventPlayerActivity 业务事件统一使用的推送事件名
const EventPlayerActivity = network.EventPlayerActivity

// player_activity 的 type 字段
const (
	ActivityQuestCompleted   = "quest_completed"
	ActivityLevelUp          = "level_up"
	ActivityRankUp           = "rank_up"
	ActivityDungeonCompleted = "dungeon_completed"
)

// LeaderboardSize 排行榜最多返回的玩家数
const LeaderboardSize = 100

// Config 业务规则配置
type Config struct {
	JWTSecret             string
	TokenTTL              time.Duration
	DailyQuestLimit       int
	AutoCheckAchievements bool
}

// Recorder receives business metrics. monitor.Monitor implements it.
type Recorder interface {
	XPGranted(amount int)
	LevelsGained(n int)
	QuestCompleted(questType string)
	DungeonFinished(status string)
	AchievementUnlocked()
}

// LeaderboardCache 排行榜缓存，保存前 LeaderboardSize 名
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool, error)
	SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) error
	InvalidateLeaderboard(ctx context.Context) error
}

// Activity 是 player_activity 事件的负载
type Activity struct {
	Type     string `json:"type"`
	Player   string `json:"player"`
	Quest    string `json:"quest,omitempty"`
	Dungeon  string `json:"dungeon,omitempty"`
	XP       int    `json:"xp,omitempty"`
	NewLevel int    `json:"newLevel,omitempty"`
	NewRank  string `json:"newRank,omitempty"`
}

// Event 事务提交后才发送。UserIDs 为空表示发送给所有在线玩家
type Event struct {
	UserIDs []uint
	Name    string
	Payload any
}

type nopRecorder struct{}

func (nopRecorder) XPGranted(int)          {}
func (nopRecorder) LevelsGained(int)       {}
func (nopRecorder) QuestCompleted(string)  {}
func (nopRecorder) DungeonFinished(string) {}
func (nopRecorder) AchievementUnlocked()   {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToAll(string, any) error            { return nil }
func (nopBroadcaster) BroadcastToUsers([]uint, string, any) error { return nil }

// core 各个服务共享的依赖
type core struct {
	store       persistence.Store
	locks       *playerLocks
	broadcaster broadcast.Broadcaster
	metrics     Recorder
	leaderboard LeaderboardCache
	now         func() time.Time
	cfg         Config
}

// Option 修改 Services 的可选依赖
type Option func(*core)

// WithBroadcaster 设置事件推送
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(c *core) { c.broadcaster = b }
}

// WithMetrics 设置指标记录
func WithMetrics(r Recorder) Option {
	return func(c *core) { c.metrics = r }
}

// WithLeaderboardCache 设置排行榜缓存
func WithLeaderboardCache(lc LeaderboardCache) Option {
	return func(c *core) { c.leaderboard = lc }
}

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// Services 聚合所有业务服务
type Services struct {
	Player      *PlayerService
	Quest       *QuestService
	Dungeon     *DungeonService
	Achievement *AchievementService
	Inventory   *InventoryService
	Statistics  *StatisticsService
	Auth        *AuthService
}

func New(store persistence.Store, cfg Config, opts ...Option) *Services {
	if cfg.DailyQuestLimit <= 0 {
		cfg.DailyQuestLimit = 5
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	c := &core{
		store:       store,
		locks:       newPlayerLocks(),
		broadcaster: nopBroadcaster{},
		metrics:     nopRecorder{},
		now:         func() time.Time { return time.Now().UTC() },
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(c)
	}

	achievements := &AchievementService{core: c}
	quests := &QuestService{core: c, achievements: achievements}
	return &Services{
		Player:      &PlayerService{core: c},
		Quest:       quests,
		Dungeon:     &DungeonService{core: c},
		Achievement: achievements,
		Inventory:   &InventoryService{core: c},
		Statistics:  &StatisticsService{core: c},
		Auth:        &AuthService{core: c, quests: quests},
	}
}

// publish 发送事件，失败只记录日志
func (c *core) publish(events []Event) {
	for _, ev := range events {
		var err error
		if len(ev.UserIDs) == 0 {
			err = c.broadcaster.BroadcastToAll(ev.Name, ev.Payload)
		} else {
			err = c.broadcaster.BroadcastToUsers(ev.UserIDs, ev.Name, ev.Payload)
		}
		if err != nil {
			logger.Log.Warnw("broadcast failed", "event", ev.Name, "error", err)
		}
	}
}

func (c *core) invalidateLeaderboard(ctx context.Context) {
	if c.leaderboard == nil {
		return
	}
	if err := c.leaderboard.InvalidateLeaderboard(ctx); err != nil {
		logger.Log.Warnw("invalidate leaderboard cache failed", "error", err)
	}
}

func activityEvent(a Activity) Event {
	return Event{Name: EventPlayerActivity, Payload: a}
}
