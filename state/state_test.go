package state

import (
	"errors"
	"testing"
)

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	sm := NewBaseStateMachine()

	if err := sm.AddTransition("A", "B"); err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	next, err := sm.Transition("A", "B")
	if err != nil {
		t.Errorf("Expected transition from A to B to be allowed, but got error: %v", err)
	}
	if next != "B" {
		t.Errorf("Expected new state to be B, but got %s", next)
	}

	// --- Test blocked transition ---
	next, err = sm.Transition("B", "A")
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if next != "B" {
		t.Errorf("Expected state to remain B after a blocked transition, but got %s", next)
	}
}

func TestStateMachine_SelfTransitionRejected(t *testing.T) {
	sm := NewBaseStateMachine()
	if err := sm.AddTransition("A", "A"); err == nil {
		t.Error("Expected self transition to be rejected")
	}
}

func TestDungeonLifecycle(t *testing.T) {
	if !Dungeon.CanTransition(DungeonInProgress, DungeonCompleted) {
		t.Error("in_progress -> completed should be allowed")
	}
	if !Dungeon.CanTransition(DungeonInProgress, DungeonFailed) {
		t.Error("in_progress -> failed should be allowed")
	}
	if Dungeon.CanTransition(DungeonFailed, DungeonCompleted) {
		t.Error("failed is terminal")
	}
	if !Dungeon.IsTerminal(DungeonCompleted) || !Dungeon.IsTerminal(DungeonFailed) {
		t.Error("completed and failed should both be terminal")
	}
	if Dungeon.IsTerminal(DungeonInProgress) {
		t.Error("in_progress should not be terminal")
	}
}

func TestQuestLifecycle(t *testing.T) {
	if QuestStatus(0, false) != QuestAssigned {
		t.Error("no progress should be assigned")
	}
	if QuestStatus(2, false) != QuestInProgress {
		t.Error("partial progress should be in_progress")
	}
	if QuestStatus(5, true) != QuestCompleted {
		t.Error("completed flag should win")
	}
	if !Quest.IsTerminal(QuestCompleted) {
		t.Error("completed quest should be terminal")
	}
	if _, err := Quest.Transition(QuestCompleted, QuestInProgress); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, got %v", err)
	}
}
