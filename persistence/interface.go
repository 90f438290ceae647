// persistence/interface.go
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/state"
)

// 错误定义
var (
	ErrRecordNotFound  = fmt.Errorf("record %w", apperr.ErrNotFound)
	ErrDuplicateRecord = fmt.Errorf("duplicate record: %w", apperr.ErrConflict)
)

// QuestTemplateFilter 任务模板查询条件
type QuestTemplateFilter struct {
	QuestType  string
	ActiveOnly bool
	Limit      int
}

// PlayerQuestFilter 玩家任务查询条件，零值字段不参与过滤
type PlayerQuestFilter struct {
	Completed      *bool
	QuestType      string
	DueAfter       *time.Time // 没有截止时间，或截止时间晚于该时刻
	CompletedFrom  *time.Time
	CompletedUntil *time.Time
}

// DungeonProgressFilter 地下城挑战查询条件
type DungeonProgressFilter struct {
	ID     uint
	Status state.Status
}

// Store is the record store consumed by the services. Every method takes a
// context; Transaction runs fn against a store bound to one database
// transaction and rolls back when fn returns an error.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	FindPlayerByEmail(ctx context.Context, email string) (*models.Player, error)
	UpdatePlayer(ctx context.Context, id uint, fields map[string]any) error
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	CreateStats(ctx context.Context, stats *models.PlayerStats) error
	GetStats(ctx context.Context, playerID uint) (*models.PlayerStats, error)
	IncrementStats(ctx context.Context, playerID uint, deltas map[string]int) error

	GetRanks(ctx context.Context) ([]models.Rank, error)
	GetRank(ctx context.Context, id uint) (*models.Rank, error)

	GetQuestTemplates(ctx context.Context, filter QuestTemplateFilter) ([]models.QuestTemplate, error)
	CreatePlayerQuests(ctx context.Context, quests []models.PlayerQuest) error
	GetPlayerQuests(ctx context.Context, playerID uint, filter PlayerQuestFilter) ([]models.PlayerQuest, error)
	GetPlayerQuest(ctx context.Context, playerID, questID uint) (*models.PlayerQuest, error)
	UpdatePlayerQuest(ctx context.Context, id uint, fields map[string]any) error
	DeletePlayerQuests(ctx context.Context, playerID uint, filter PlayerQuestFilter) (int64, error)
	CountCompletedQuests(ctx context.Context, playerID uint) (int64, error)

	ListDungeons(ctx context.Context, activeOnly bool) ([]models.Dungeon, error)
	GetDungeon(ctx context.Context, id uint) (*models.Dungeon, error)
	CreateDungeonProgress(ctx context.Context, progress *models.DungeonProgress) error
	GetDungeonProgress(ctx context.Context, playerID uint, filter DungeonProgressFilter) ([]models.DungeonProgress, error)
	ListDungeonProgressByStatus(ctx context.Context, status state.Status) ([]models.DungeonProgress, error)
	UpdateDungeonProgress(ctx context.Context, id uint, from state.Status, fields map[string]any) (bool, error)
	CountDungeonProgress(ctx context.Context, playerID uint, status state.Status) (int64, error)
	CountDungeonCompletions(ctx context.Context, playerID uint) (map[uint]int64, error)

	GetAchievements(ctx context.Context) ([]models.Achievement, error)
	GetPlayerAchievements(ctx context.Context, playerID uint) ([]models.PlayerAchievement, error)
	InsertPlayerAchievement(ctx context.Context, pa *models.PlayerAchievement) error

	InsertActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivity(ctx context.Context, playerID uint, since time.Time) ([]models.ActivityLog, error)

	GetItemsByName(ctx context.Context, names []string) ([]models.Item, error)
	ListInventory(ctx context.Context, playerID uint) ([]models.InventoryEntry, error)
	GetInventoryEntry(ctx context.Context, playerID, entryID uint) (*models.InventoryEntry, error)
	AddInventory(ctx context.Context, playerID, itemID uint, quantity int, now time.Time) error
	ConsumeInventory(ctx context.Context, entryID uint) error

	Close() error
}
