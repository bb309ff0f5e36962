package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerRegistryFires(t *testing.T) {
	reg := NewTimerRegistry()
	defer reg.Stop()

	fired := make(chan struct{})
	reg.Replace("t1", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected handle removed after fire, got %d", reg.Len())
	}
}

func TestTimerRegistryReplaceCancelsPrevious(t *testing.T) {
	reg := NewTimerRegistry()
	defer reg.Stop()

	var first, second atomic.Int32
	reg.Replace("game-1", 20*time.Millisecond, func() { first.Add(1) })
	reg.Replace("game-1", 20*time.Millisecond, func() { second.Add(1) })

	if reg.Len() != 1 {
		t.Fatalf("expected a single outstanding timer, got %d", reg.Len())
	}

	time.Sleep(100 * time.Millisecond)
	if got := first.Load(); got != 0 {
		t.Errorf("replaced timer fired %d times, want 0", got)
	}
	if got := second.Load(); got != 1 {
		t.Errorf("current timer fired %d times, want 1", got)
	}
}

func TestTimerRegistryCancel(t *testing.T) {
	reg := NewTimerRegistry()
	defer reg.Stop()

	var fired atomic.Int32
	reg.Replace("t", 20*time.Millisecond, func() { fired.Add(1) })

	if !reg.Cancel("t") {
		t.Fatal("Cancel returned false for a registered timer")
	}
	if reg.Cancel("t") {
		t.Fatal("Cancel returned true for an already-cancelled timer")
	}

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled timer fired %d times", got)
	}
}
