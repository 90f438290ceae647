// persistence/gorm_store.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/state"
)

// GormStore 使用GORM的Store实现，生产环境为PostgreSQL，本地与测试可用SQLite
type GormStore struct {
	db *gorm.DB
}

func gormConfig() *gorm.Config {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)
	return &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewSQLite 打开SQLite数据库，path 为 ":memory:" 时使用内存库
func NewSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite 单写者，内存库也必须共用同一个连接
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return NewGormStore(db)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Rank{},
		&models.Player{},
		&models.PlayerStats{},
		&models.QuestTemplate{},
		&models.PlayerQuest{},
		&models.Dungeon{},
		&models.DungeonProgress{},
		&models.Achievement{},
		&models.PlayerAchievement{},
		&models.ActivityLog{},
		&models.Item{},
		&models.InventoryEntry{},
	)
}

// DB exposes the underlying connection for seeding.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// --- players ---

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	if err := s.db.WithContext(ctx).Create(player).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

func (s *GormStore) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &player, nil
}

func (s *GormStore) FindPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&player).Error; err != nil {
		return nil, notFound(err)
	}
	return &player, nil
}

func (s *GormStore) UpdatePlayer(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := s.db.WithContext(ctx).
		Table("players").
		Select("players.id, players.username, players.level, players.xp, players.streak_days, ranks.name AS rank_name, ranks.color AS rank_color").
		Joins("LEFT JOIN ranks ON ranks.id = players.rank_id").
		Order("players.level DESC, players.xp DESC, players.id ASC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// --- stats ---

func (s *GormStore) CreateStats(ctx context.Context, stats *models.PlayerStats) error {
	return s.db.WithContext(ctx).Create(stats).Error
}

func (s *GormStore) GetStats(ctx context.Context, playerID uint) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&stats).Error; err != nil {
		return nil, notFound(err)
	}
	return &stats, nil
}

// IncrementStats 原子地增减属性列，列名必须是五项属性或 stat_points
func (s *GormStore) IncrementStats(ctx context.Context, playerID uint, deltas map[string]int) error {
	if len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]any, len(deltas))
	for col, delta := range deltas {
		if col != "stat_points" && !models.ValidStat(col) {
			return fmt.Errorf("unknown stat column %q", col)
		}
		updates[col] = gorm.Expr(col+" + ?", delta)
	}

	result := s.db.WithContext(ctx).Model(&models.PlayerStats{}).Where("player_id = ?", playerID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// --- ranks ---

func (s *GormStore) GetRanks(ctx context.Context) ([]models.Rank, error) {
	var ranks []models.Rank
	err := s.db.WithContext(ctx).Order("min_level ASC").Find(&ranks).Error
	return ranks, err
}

func (s *GormStore) GetRank(ctx context.Context, id uint) (*models.Rank, error) {
	var rank models.Rank
	if err := s.db.WithContext(ctx).First(&rank, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rank, nil
}

// --- quests ---

func (s *GormStore) GetQuestTemplates(ctx context.Context, filter QuestTemplateFilter) ([]models.QuestTemplate, error) {
	q := s.db.WithContext(ctx).Model(&models.QuestTemplate{})
	if filter.QuestType != "" {
		q = q.Where("quest_type = ?", filter.QuestType)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var templates []models.QuestTemplate
	err := q.Order("id ASC").Find(&templates).Error
	return templates, err
}

func (s *GormStore) CreatePlayerQuests(ctx context.Context, quests []models.PlayerQuest) error {
	if len(quests) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(&quests).Error
}

func (s *GormStore) playerQuestScope(db *gorm.DB, playerID uint, filter PlayerQuestFilter) *gorm.DB {
	q := db.Where("player_id = ?", playerID)
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.QuestType != "" {
		sub := s.db.Model(&models.QuestTemplate{}).Select("id").Where("quest_type = ?", filter.QuestType)
		q = q.Where("quest_template_id IN (?)", sub)
	}
	if filter.DueAfter != nil {
		q = q.Where("(due_date IS NULL OR due_date > ?)", *filter.DueAfter)
	}
	if filter.CompletedFrom != nil {
		q = q.Where("completed_at >= ?", *filter.CompletedFrom)
	}
	if filter.CompletedUntil != nil {
		q = q.Where("completed_at < ?", *filter.CompletedUntil)
	}
	return q
}

func (s *GormStore) GetPlayerQuests(ctx context.Context, playerID uint, filter PlayerQuestFilter) ([]models.PlayerQuest, error) {
	var quests []models.PlayerQuest
	q := s.playerQuestScope(s.db.WithContext(ctx).Model(&models.PlayerQuest{}), playerID, filter)
	err := q.Preload("QuestTemplate").Order("id ASC").Find(&quests).Error
	return quests, err
}

func (s *GormStore) GetPlayerQuest(ctx context.Context, playerID, questID uint) (*models.PlayerQuest, error) {
	var quest models.PlayerQuest
	err := s.db.WithContext(ctx).
		Preload("QuestTemplate").
		Where("id = ? AND player_id = ?", questID, playerID).
		First(&quest).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quest, nil
}

func (s *GormStore) UpdatePlayerQuest(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.PlayerQuest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) DeletePlayerQuests(ctx context.Context, playerID uint, filter PlayerQuestFilter) (int64, error) {
	q := s.playerQuestScope(s.db.WithContext(ctx), playerID, filter)
	result := q.Delete(&models.PlayerQuest{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) CountCompletedQuests(ctx context.Context, playerID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PlayerQuest{}).
		Where("player_id = ? AND completed = ?", playerID, true).
		Count(&n).Error
	return n, err
}

// --- dungeons ---

func (s *GormStore) ListDungeons(ctx context.Context, activeOnly bool) ([]models.Dungeon, error) {
	q := s.db.WithContext(ctx).Model(&models.Dungeon{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var dungeons []models.Dungeon
	err := q.Order("required_level ASC, id ASC").Find(&dungeons).Error
	return dungeons, err
}

func (s *GormStore) GetDungeon(ctx context.Context, id uint) (*models.Dungeon, error) {
	var dungeon models.Dungeon
	if err := s.db.WithContext(ctx).First(&dungeon, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &dungeon, nil
}

func (s *GormStore) CreateDungeonProgress(ctx context.Context, progress *models.DungeonProgress) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(progress).Error
}

func (s *GormStore) GetDungeonProgress(ctx context.Context, playerID uint, filter DungeonProgressFilter) ([]models.DungeonProgress, error) {
	q := s.db.WithContext(ctx).Preload("Dungeon").Where("player_id = ?", playerID)
	if filter.ID != 0 {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var progress []models.DungeonProgress
	err := q.Order("id ASC").Find(&progress).Error
	return progress, err
}

func (s *GormStore) ListDungeonProgressByStatus(ctx context.Context, status state.Status) ([]models.DungeonProgress, error) {
	var progress []models.DungeonProgress
	err := s.db.WithContext(ctx).Preload("Dungeon").
		Where("status = ?", status).
		Order("id ASC").
		Find(&progress).Error
	return progress, err
}

// UpdateDungeonProgress 仅当记录仍处于 from 状态时更新，返回是否有记录被修改
func (s *GormStore) UpdateDungeonProgress(ctx context.Context, id uint, from state.Status, fields map[string]any) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.DungeonProgress{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) CountDungeonProgress(ctx context.Context, playerID uint, status state.Status) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.DungeonProgress{}).Where("player_id = ?", playerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (s *GormStore) CountDungeonCompletions(ctx context.Context, playerID uint) (map[uint]int64, error) {
	var rows []struct {
		DungeonID uint
		Total     int64
	}
	err := s.db.WithContext(ctx).Model(&models.DungeonProgress{}).
		Select("dungeon_id, COUNT(*) AS total").
		Where("player_id = ? AND status = ?", playerID, state.DungeonCompleted).
		Group("dungeon_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.DungeonID] = r.Total
	}
	return counts, nil
}

// --- achievements ---

func (s *GormStore) GetAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.db.WithContext(ctx).Order("id ASC").Find(&achievements).Error
	return achievements, err
}

func (s *GormStore) GetPlayerAchievements(ctx context.Context, playerID uint) ([]models.PlayerAchievement, error) {
	var unlocked []models.PlayerAchievement
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Order("id ASC").Find(&unlocked).Error
	return unlocked, err
}

// InsertPlayerAchievement 插入解锁记录，已存在时返回 ErrDuplicateRecord。
// 使用 ON CONFLICT DO NOTHING，避免在 PostgreSQL 事务中因唯一键冲突而中止整个事务。
func (s *GormStore) InsertPlayerAchievement(ctx context.Context, pa *models.PlayerAchievement) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(pa)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicateRecord
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateRecord
	}
	return nil
}

// --- activity ---

func (s *GormStore) InsertActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListActivity(ctx context.Context, playerID uint, since time.Time) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND created_at >= ?", playerID, since).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// --- items & inventory ---

func (s *GormStore) GetItemsByName(ctx context.Context, names []string) ([]models.Item, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var items []models.Item
	err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&items).Error
	return items, err
}

func (s *GormStore) ListInventory(ctx context.Context, playerID uint) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	err := s.db.WithContext(ctx).Preload("Item").
		Where("player_id = ?", playerID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) GetInventoryEntry(ctx context.Context, playerID, entryID uint) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	err := s.db.WithContext(ctx).Preload("Item").
		Where("id = ? AND player_id = ?", entryID, playerID).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// AddInventory 同一道具叠加数量，否则新建一格
func (s *GormStore) AddInventory(ctx context.Context, playerID, itemID uint, quantity int, now time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.InventoryEntry{}).
		Where("player_id = ? AND item_id = ?", playerID, itemID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	entry := models.InventoryEntry{
		PlayerID:   playerID,
		ItemID:     itemID,
		Quantity:   quantity,
		AcquiredAt: now,
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(&entry).Error
}

// ConsumeInventory 数量减一，用完则删除
func (s *GormStore) ConsumeInventory(ctx context.Context, entryID uint) error {
	db := s.db.WithContext(ctx)
	result := db.Model(&models.InventoryEntry{}).
		Where("id = ? AND quantity > 1", entryID).
		Update("quantity", gorm.Expr("quantity - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	result = db.Delete(&models.InventoryEntry{}, entryID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
