// state/state.go
package state

import (
	"errors"
	"fmt"
	"sync"
)

// Status 记录的状态值
type Status string

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 状态机接口
type StateMachine interface {
	AddTransition(from, to Status) error
	CanTransition(from, to Status) bool
	Transition(from, to Status) (Status, error)
	IsTerminal(s Status) bool
}

// 基础状态机实现：只维护允许的迁移表，状态本身保存在记录里
type BaseStateMachine struct {
	transitions map[Status]map[Status]struct{} // fromState -> toState
	mutex       sync.RWMutex
}

func NewBaseStateMachine() *BaseStateMachine {
	return &BaseStateMachine{
		transitions: make(map[Status]map[Status]struct{}),
	}
}

func (sm *BaseStateMachine) AddTransition(from, to Status) error {
	if from == to {
		return fmt.Errorf("self transition %q is not allowed", from)
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Status]struct{})
	}
	sm.transitions[from][to] = struct{}{}
	return nil
}

func (sm *BaseStateMachine) CanTransition(from, to Status) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	targets, exists := sm.transitions[from]
	if !exists {
		return false
	}
	_, ok := targets[to]
	return ok
}

// Transition 校验 from -> to 是否合法，合法时返回新状态
func (sm *BaseStateMachine) Transition(from, to Status) (Status, error) {
	if !sm.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	return to, nil
}

// IsTerminal 没有任何出边的状态即为终态
func (sm *BaseStateMachine) IsTerminal(s Status) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.transitions[s]) == 0
}

func mustBuild(edges ...[2]Status) *BaseStateMachine {
	sm := NewBaseStateMachine()
	for _, e := range edges {
		if err := sm.AddTransition(e[0], e[1]); err != nil {
			panic(err)
		}
	}
	return sm
}
