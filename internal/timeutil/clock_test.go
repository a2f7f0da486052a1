package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestMockClock_AdvanceFiresTimer(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)
	timer := clock.NewTimer(500 * time.Millisecond)

	clock.Advance(499 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired before deadline")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case got := <-timer.C():
		if want := start.Add(500 * time.Millisecond); !got.Equal(want) {
			t.Errorf("timer time = %v, want %v", got, want)
		}
	default:
		t.Fatal("timer did not fire at deadline")
	}

	if timer.Stop() {
		t.Error("Stop() after firing should report inactive")
	}
}

func TestMockClock_StoppedTimerDoesNotFire(t *testing.T) {
	clock := NewMockClock(time.Time{})
	timer := clock.NewTimer(time.Second)
	if !timer.Stop() {
		t.Error("Stop() on pending timer should report active")
	}
	clock.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Error("stopped timer fired")
	default:
	}
}

func TestMockClock_Ticker(t *testing.T) {
	clock := NewMockClock(time.Time{})
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		clock.Advance(100 * time.Millisecond)
		select {
		case <-ticker.C():
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
}

func TestMockClock_BlockUntil(t *testing.T) {
	clock := NewMockClock(time.Time{})
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Second)
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
}
