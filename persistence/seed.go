// persistence/seed.go
package persistence

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/progression"
)

var seedRanks = []models.Rank{
	{ID: 1, Name: "E-Rank", MinLevel: 1, Color: "#808080", DisplayOrder: 1},
	{ID: 2, Name: "D-Rank", MinLevel: 10, Color: "#ffffff", DisplayOrder: 2},
	{ID: 3, Name: "C-Rank", MinLevel: 20, Color: "#00ff00", DisplayOrder: 3},
	{ID: 4, Name: "B-Rank", MinLevel: 40, Color: "#0000ff", DisplayOrder: 4},
	{ID: 5, Name: "A-Rank", MinLevel: 60, Color: "#ff0000", DisplayOrder: 5},
	{ID: 6, Name: "S-Rank", MinLevel: 80, Color: "#ffd700", DisplayOrder: 6},
	{ID: 7, Name: "National Level", MinLevel: 100, Color: "#800080", DisplayOrder: 7},
}

var seedQuestTemplates = []models.QuestTemplate{
	{Title: "Push-ups", Description: "Do 100 Push-ups", QuestType: models.QuestDaily, XPReward: 100, StatBonusType: models.StatStrength, StatBonusAmount: 1, Difficulty: "medium", Category: "fitness", TargetCount: 1, IsActive: true},
	{Title: "Sit-ups", Description: "Do 100 Sit-ups", QuestType: models.QuestDaily, XPReward: 100, StatBonusType: models.StatVitality, StatBonusAmount: 1, Difficulty: "medium", Category: "fitness", TargetCount: 1, IsActive: true},
	{Title: "Squats", Description: "Do 100 Squats", QuestType: models.QuestDaily, XPReward: 100, StatBonusType: models.StatStrength, StatBonusAmount: 1, Difficulty: "medium", Category: "fitness", TargetCount: 1, IsActive: true},
	{Title: "Running", Description: "Run 10km", QuestType: models.QuestDaily, XPReward: 100, StatBonusType: models.StatAgility, StatBonusAmount: 1, Difficulty: "medium", Category: "fitness", TargetCount: 1, IsActive: true},
	{Title: "Read", Description: "Read 30 pages", QuestType: models.QuestDaily, XPReward: 60, StatBonusType: models.StatIntelligence, StatBonusAmount: 1, Difficulty: "easy", Category: "mind", TargetCount: 30, IsActive: true},
	{Title: "Long run", Description: "Run 30km this week", QuestType: models.QuestWeekly, XPReward: 400, StatBonusType: models.StatVitality, StatBonusAmount: 2, Difficulty: "hard", Category: "fitness", TargetCount: 3, IsActive: true},
	{Title: "Learn something new", Description: "Finish an online lesson", QuestType: models.QuestSide, XPReward: 150, StatBonusType: models.StatIntelligence, StatBonusAmount: 1, Difficulty: "medium", Category: "mind", TargetCount: 1, IsActive: true},
	{Title: "Cold shower", Description: "Take a cold shower", QuestType: models.QuestDungeon, XPReward: 80, Difficulty: "hard", Category: "discipline", TargetCount: 1, IsActive: true},
	{Title: "No sugar", Description: "Skip sugar for a day", QuestType: models.QuestDungeon, XPReward: 80, Difficulty: "hard", Category: "discipline", TargetCount: 1, IsActive: true},
	{Title: "Meditate", Description: "Meditate for 20 minutes", QuestType: models.QuestDungeon, XPReward: 80, StatBonusType: models.StatLuck, StatBonusAmount: 1, Difficulty: "medium", Category: "mind", TargetCount: 1, IsActive: true},
}

var seedDungeons = []models.Dungeon{
	{
		Name: "Goblin Cave", Description: "A short gate for new hunters", Difficulty: "E",
		RequiredLevel: 1, XPReward: 300, TimeLimitHours: 24, QuestCount: 3, IsActive: true,
		Rewards: datatypes.NewJSONType(models.DungeonRewards{StatPoints: 1, Items: []string{"Minor Potion"}}),
	},
	{
		Name: "Red Gate", Description: "A frozen gate that tests discipline", Difficulty: "C",
		RequiredLevel: 20, XPReward: 2000, TimeLimitHours: 48, QuestCount: 5, IsActive: true,
		Rewards: datatypes.NewJSONType(models.DungeonRewards{StatPoints: 3, Items: []string{"Elixir of Strength"}}),
	},
	{
		Name: "Demon Castle", Description: "Climb the tower floor by floor", Difficulty: "A",
		RequiredLevel: 60, XPReward: 10000, TimeLimitHours: 72, QuestCount: 5, IsActive: true,
		Rewards: datatypes.NewJSONType(models.DungeonRewards{StatPoints: 5, Items: []string{"Scroll of Wisdom"}}),
	},
}

var seedAchievements = []models.Achievement{
	{Name: "First Step", Description: "Complete your first quest", XPReward: 50, Rarity: "common",
		Requirement: datatypes.NewJSONType(progression.Requirement{QuestsCompleted: 1})},
	{Name: "Diligent", Description: "Complete 5 quests", XPReward: 150, Rarity: "uncommon",
		Requirement: datatypes.NewJSONType(progression.Requirement{QuestsCompleted: 5})},
	{Name: "Awakened", Description: "Reach level 10", XPReward: 500, Rarity: "rare",
		PassiveBonusType: models.StatStrength, PassiveBonusAmount: 1,
		Requirement: datatypes.NewJSONType(progression.Requirement{Level: 10})},
	{Name: "Consistent", Description: "Keep a 7 day login streak", XPReward: 300, Rarity: "rare",
		Requirement: datatypes.NewJSONType(progression.Requirement{StreakDays: 7})},
	{Name: "Gate Breaker", Description: "Clear your first dungeon", XPReward: 400, Rarity: "epic",
		Requirement: datatypes.NewJSONType(progression.Requirement{DungeonsCompleted: 1})},
	{Name: "Monarch", Description: "Reach S-Rank", XPReward: 5000, Rarity: "legendary",
		Requirement: datatypes.NewJSONType(progression.Requirement{Rank: "S-Rank"})},
}

var seedItems = []models.Item{
	{Name: "Minor Potion", Description: "Grants one point of vitality", ItemType: "consumable", Rarity: "common",
		Effect: datatypes.NewJSONType(models.ItemEffect{StatBoost: map[string]int{models.StatVitality: 1}}), IsTradeable: true},
	{Name: "Elixir of Strength", Description: "Grants two points of strength", ItemType: "consumable", Rarity: "rare",
		Effect: datatypes.NewJSONType(models.ItemEffect{StatBoost: map[string]int{models.StatStrength: 2}}), IsTradeable: true},
	{Name: "Scroll of Wisdom", Description: "Doubles XP for a day", ItemType: "buff", Rarity: "epic",
		Effect: datatypes.NewJSONType(models.ItemEffect{XPMultiplier: 2}), DurationHours: 24},
	{Name: "Holy Water", Description: "Removes a debuff", ItemType: "consumable", Rarity: "uncommon",
		Effect: datatypes.NewJSONType(models.ItemEffect{RemoveDebuff: true}), IsTradeable: true},
}

// Seed 写入初始数据，已存在的记录不会被修改，可重复执行
func (s *GormStore) Seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range seedRanks {
			rank := r
			if err := tx.Where(models.Rank{Name: rank.Name}).FirstOrCreate(&rank).Error; err != nil {
				return fmt.Errorf("seed rank %s: %w", rank.Name, err)
			}
		}
		for _, q := range seedQuestTemplates {
			tpl := q
			if err := tx.Where("title = ? AND quest_type = ?", tpl.Title, tpl.QuestType).FirstOrCreate(&tpl).Error; err != nil {
				return fmt.Errorf("seed quest template %s: %w", tpl.Title, err)
			}
		}
		for _, d := range seedDungeons {
			dungeon := d
			if err := tx.Where(models.Dungeon{Name: dungeon.Name}).FirstOrCreate(&dungeon).Error; err != nil {
				return fmt.Errorf("seed dungeon %s: %w", dungeon.Name, err)
			}
		}
		for _, a := range seedAchievements {
			achievement := a
			if err := tx.Where(models.Achievement{Name: achievement.Name}).FirstOrCreate(&achievement).Error; err != nil {
				return fmt.Errorf("seed achievement %s: %w", achievement.Name, err)
			}
		}
		for _, i := range seedItems {
			item := i
			if err := tx.Where(models.Item{Name: item.Name}).FirstOrCreate(&item).Error; err != nil {
				return fmt.Errorf("seed item %s: %w", item.Name, err)
			}
		}
		return nil
	})
}
