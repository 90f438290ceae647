// progression/progression.go
package progression

import (
	"fmt"
	"math"

	"github.com/wfunc/arise/apperr"
)

const (
	// BaseXP 每级所需经验的基础值
	BaseXP = 100
	// StatPointsPerLevel 每升一级奖励的属性点
	StatPointsPerLevel = 3
	// DefaultRankID 没有任何段位定义时使用的段位
	DefaultRankID uint = 1
)

// Result 一次经验结算的结果
type Result struct {
	Level        int
	XP           int
	LevelsGained int
	StatPoints   int
}

// LeveledUp reports whether at least one level was gained.
func (r Result) LeveledUp() bool {
	return r.LevelsGained > 0
}

// Threshold 返回从 level 升到下一级所需的经验: 100 + level^3
func Threshold(level int) int {
	return BaseXP + level*level*level
}

// ApplyXP 把 delta 加到当前经验上，并逐级扣除升级所需经验。
// 必须逐级循环，不能用闭式解，以保证每一级都发放属性点。
func ApplyXP(level, xp, delta int) (Result, error) {
	if delta < 0 {
		return Result{}, fmt.Errorf("%w: negative xp delta %d", apperr.ErrInvalidArgument, delta)
	}
	if level < 1 {
		return Result{}, fmt.Errorf("%w: level %d below 1", apperr.ErrInvalidArgument, level)
	}
	if xp < 0 {
		return Result{}, fmt.Errorf("%w: negative xp %d", apperr.ErrInvalidArgument, xp)
	}
	if delta > math.MaxInt-xp {
		return Result{}, fmt.Errorf("%w: xp delta %d overflows current xp %d", apperr.ErrInvalidArgument, delta, xp)
	}

	res := Result{Level: level, XP: xp + delta}
	for res.XP >= Threshold(res.Level) {
		res.XP -= Threshold(res.Level)
		res.Level++
		res.LevelsGained++
		res.StatPoints += StatPointsPerLevel
	}
	return res, nil
}

// Progress 返回当前等级内的经验百分比
func Progress(level, xp int) float64 {
	return float64(xp) / float64(Threshold(level)) * 100
}
