// progression/requirement.go
package progression

// ConditionKind 成就条件类型
type ConditionKind string

const (
	CondQuestsCompleted   ConditionKind = "quests_completed"
	CondLevel             ConditionKind = "level"
	CondStreakDays        ConditionKind = "streak_days"
	CondDungeonsCompleted ConditionKind = "dungeons_completed"
	CondRank              ConditionKind = "rank"
)

// Condition is one clause of a Requirement. Threshold is used by the
// counter kinds, Rank only by CondRank.
type Condition struct {
	Kind      ConditionKind
	Threshold int
	Rank      string
}

// Counters 玩家的聚合计数，用于成就判定
type Counters struct {
	QuestsCompleted   int
	DungeonsCompleted int
	Level             int
	StreakDays        int
	RankName          string
}

// Satisfied 判断单个条件是否满足
func (c Condition) Satisfied(ctr Counters) bool {
	switch c.Kind {
	case CondQuestsCompleted:
		return ctr.QuestsCompleted >= c.Threshold
	case CondLevel:
		return ctr.Level >= c.Threshold
	case CondStreakDays:
		return ctr.StreakDays >= c.Threshold
	case CondDungeonsCompleted:
		return ctr.DungeonsCompleted >= c.Threshold
	case CondRank:
		return ctr.RankName == c.Rank
	default:
		return false
	}
}

// Requirement 成就解锁条件，JSON 形如 {"quests_completed": 5, "level": 10}。
// 零值字段视为未设置。
type Requirement struct {
	QuestsCompleted   int    `json:"quests_completed,omitempty"`
	Level             int    `json:"level,omitempty"`
	StreakDays        int    `json:"streak_days,omitempty"`
	DungeonsCompleted int    `json:"dungeons_completed,omitempty"`
	Rank              string `json:"rank,omitempty"`
}

// Conditions 返回所有已设置的条件
func (r Requirement) Conditions() []Condition {
	var conds []Condition
	if r.QuestsCompleted > 0 {
		conds = append(conds, Condition{Kind: CondQuestsCompleted, Threshold: r.QuestsCompleted})
	}
	if r.Level > 0 {
		conds = append(conds, Condition{Kind: CondLevel, Threshold: r.Level})
	}
	if r.StreakDays > 0 {
		conds = append(conds, Condition{Kind: CondStreakDays, Threshold: r.StreakDays})
	}
	if r.DungeonsCompleted > 0 {
		conds = append(conds, Condition{Kind: CondDungeonsCompleted, Threshold: r.DungeonsCompleted})
	}
	if r.Rank != "" {
		conds = append(conds, Condition{Kind: CondRank, Rank: r.Rank})
	}
	return conds
}

// Satisfied is true when ANY condition holds. An empty requirement never unlocks.
func (r Requirement) Satisfied(ctr Counters) bool {
	for _, c := range r.Conditions() {
		if c.Satisfied(ctr) {
			return true
		}
	}
	return false
}
