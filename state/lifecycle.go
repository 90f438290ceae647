// state/lifecycle.go
package state

// 地下城挑战状态
const (
	DungeonInProgress Status = "in_progress"
	DungeonCompleted  Status = "completed"
	DungeonFailed     Status = "failed"
)

// 任务状态。in_progress 是隐式的：有进度但未完成
const (
	QuestAssigned   Status = "assigned"
	QuestInProgress Status = "in_progress"
	QuestCompleted  Status = "completed"
)

// Dungeon runs finish exactly once, either completed or failed (expired).
var Dungeon = mustBuild(
	[2]Status{DungeonInProgress, DungeonCompleted},
	[2]Status{DungeonInProgress, DungeonFailed},
)

// Quest 任务不会自动失败，过期后仅从活跃列表中过滤
var Quest = mustBuild(
	[2]Status{QuestAssigned, QuestInProgress},
	[2]Status{QuestAssigned, QuestCompleted},
	[2]Status{QuestInProgress, QuestCompleted},
)

// QuestStatus derives the implicit quest status from its stored fields.
func QuestStatus(progress int, completed bool) Status {
	switch {
	case completed:
		return QuestCompleted
	case progress > 0:
		return QuestInProgress
	default:
		return QuestAssigned
	}
}
