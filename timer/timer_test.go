package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTimer_OneShot(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Int32
	m.AddTimer(10*time.Millisecond, 0, func() { fired.Add(1) })
	waitFor(t, func() bool { return fired.Load() == 1 })

	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("Expected one-shot timer to fire once, fired %d", fired.Load())
	}
	if m.Len() != 0 {
		t.Errorf("Expected queue to be empty, got %d", m.Len())
	}
}

func TestTimer_Periodic(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(0, 10*time.Millisecond, func() { fired.Add(1) })
	waitFor(t, func() bool { return fired.Load() >= 3 })

	m.RemoveTimer(id)
	if m.Len() != 0 {
		t.Errorf("Expected periodic timer to be removed, %d left", m.Len())
	}
}

func TestTimer_Remove(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(50*time.Millisecond, 0, func() { fired.Add(1) })
	m.RemoveTimer(id)
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("removed timer should not fire")
	}
}

func TestTimer_StopWaitsForCallbacks(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)

	var started, finished atomic.Bool
	m.AddTimer(0, 0, func() {
		started.Store(true)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})
	waitFor(t, started.Load)

	m.Stop()
	if !finished.Load() {
		t.Error("Stop should wait for running callbacks")
	}
	m.Stop()
}
