package main

import (
	"math"
	"testing"
	"time"
)

// TestRotaryState_AddStep_Basic tests basic step tracking
func TestRotaryState_AddStep_Basic(t *testing.T) {
	var r RotaryReducerState
	now := time.Unix(100, 0)

	for want := 1; want <= 3; want++ {
		if got := r.addStep(now, RingMinutes, 1, 1, 200); got != want {
			t.Errorf("expected count=%d, got %d", want, got)
		}
	}
}

// TestRotaryState_AddStep_DirectionChange tests that direction changes
// don't count toward the velocity threshold
func TestRotaryState_AddStep_DirectionChange(t *testing.T) {
	var r RotaryReducerState
	now := time.Unix(100, 0)

	r.addStep(now, RingMinutes, 1, 1, 200)
	r.addStep(now, RingMinutes, 1, 1, 200)
	if count := r.addStep(now, RingMinutes, 1, 1, 200); count != 3 {
		t.Errorf("expected 3 up steps, got %d", count)
	}

	if count := r.addStep(now, RingMinutes, -1, 1, 200); count != 1 {
		t.Errorf("expected count=1 for new direction, got %d", count)
	}

	// Back up again: the old up steps are still in the window.
	if count := r.addStep(now, RingMinutes, 1, 1, 200); count != 4 {
		t.Errorf("expected count=4, got %d", count)
	}
}

// TestRotaryState_AddStep_RingsAreIndependent tests that steps on another
// ring do not count toward fast spinning.
func TestRotaryState_AddStep_RingsAreIndependent(t *testing.T) {
	var r RotaryReducerState
	now := time.Unix(100, 0)

	r.addStep(now, RingMinutes, 1, 1, 200)
	r.addStep(now, RingMinutes, 1, 1, 200)
	if count := r.addStep(now, RingHours, 1, 1, 200); count != 1 {
		t.Errorf("expected count=1 on a fresh ring, got %d", count)
	}
}

// TestRotaryState_AddStep_WindowExpiry tests that old steps are pruned
func TestRotaryState_AddStep_WindowExpiry(t *testing.T) {
	var r RotaryReducerState
	t0 := time.Unix(100, 0)

	r.addStep(t0, RingSeconds, 1, 1, 100)
	r.addStep(t0.Add(10*time.Millisecond), RingSeconds, 1, 1, 100)
	if count := r.addStep(t0.Add(20*time.Millisecond), RingSeconds, 1, 1, 100); count != 3 {
		t.Errorf("expected count=3, got %d", count)
	}

	// Partial expiry: only the first step has left the window.
	if count := r.addStep(t0.Add(105*time.Millisecond), RingSeconds, 1, 1, 100); count != 3 {
		t.Errorf("expected count=3 after partial expiry, got %d", count)
	}

	// Full expiry.
	if count := r.addStep(t0.Add(time.Second), RingSeconds, 1, 1, 100); count != 1 {
		t.Errorf("expected count=1 after window expiry, got %d", count)
	}
	if len(r.RecentSteps) != 1 {
		t.Errorf("expected pruned history of 1, got %d", len(r.RecentSteps))
	}
}

func TestRotaryDelta_PositiveStepsAddTime(t *testing.T) {
	cfg := RotaryConfig{VelocityWindowMS: 200, VelocityThreshold: 10, VelocityMultiplier: 5}
	now := time.Unix(100, 0)

	cases := []struct {
		ring  Ring
		steps int
		want  float64
	}{
		{RingSeconds, 1, -6},
		{RingMinutes, 2, -12},
		{RingHours, 1, -15},
		{RingHours, -1, 15},
	}
	for _, tc := range cases {
		var r RotaryReducerState
		if got := r.rotaryDelta(now, RotaryTurn{Ring: tc.ring, Steps: tc.steps}, cfg); got != tc.want {
			t.Errorf("%s %+d: expected delta %v, got %v", tc.ring, tc.steps, tc.want, got)
		}
	}
}

func TestRotaryDelta_FastSpinMultiplies(t *testing.T) {
	cfg := RotaryConfig{VelocityWindowMS: 200, VelocityThreshold: 3, VelocityMultiplier: 4}
	t0 := time.Unix(100, 0)
	var r RotaryReducerState

	// Below threshold: normal step.
	if got := r.rotaryDelta(t0, RotaryTurn{Ring: RingMinutes, Steps: 1}, cfg); got != -6 {
		t.Fatalf("expected -6, got %v", got)
	}
	if got := r.rotaryDelta(t0.Add(20*time.Millisecond), RotaryTurn{Ring: RingMinutes, Steps: 1}, cfg); got != -6 {
		t.Fatalf("expected -6, got %v", got)
	}
	// Third detent in the window reaches the threshold.
	if got := r.rotaryDelta(t0.Add(40*time.Millisecond), RotaryTurn{Ring: RingMinutes, Steps: 1}, cfg); got != -24 {
		t.Fatalf("expected -24 while fast spinning, got %v", got)
	}

	// After a pause the multiplier no longer applies.
	if got := r.rotaryDelta(t0.Add(time.Second), RotaryTurn{Ring: RingMinutes, Steps: 1}, cfg); got != -6 {
		t.Fatalf("expected -6 after the window, got %v", got)
	}
}

func TestRotaryDelta_BurstCountsEveryDetent(t *testing.T) {
	cfg := RotaryConfig{VelocityWindowMS: 200, VelocityThreshold: 3, VelocityMultiplier: 2}
	var r RotaryReducerState

	// A single report of three detents is already fast spinning.
	if got := r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingSeconds, Steps: 3}, cfg); got != -36 {
		t.Fatalf("expected -36, got %v", got)
	}
}

func TestRotaryState_AddStep_CountsDetentsPerTurn(t *testing.T) {
	var r RotaryReducerState
	now := time.Unix(100, 0)

	if count := r.addStep(now, RingSeconds, 1, 1000, 200); count != 1000 {
		t.Errorf("expected count=1000, got %d", count)
	}
	if count := r.addStep(now, RingSeconds, 1, 2, 200); count != 1002 {
		t.Errorf("expected count=1002, got %d", count)
	}
	if len(r.RecentSteps) != 2 {
		t.Errorf("expected one history entry per turn, got %d", len(r.RecentSteps))
	}
}

func TestMaxTurnSteps(t *testing.T) {
	cases := map[Ring]int{RingSeconds: 86400, RingMinutes: 1440, RingHours: 24}
	for ring, want := range cases {
		if got := maxTurnSteps(ring); got != want {
			t.Errorf("%s: expected %d, got %d", ring, want, got)
		}
	}
}

func TestRotaryDelta_HugeTurnIsClampedAndCheap(t *testing.T) {
	cfg := RotaryConfig{VelocityWindowMS: 200, VelocityThreshold: 1 << 30, VelocityMultiplier: 2}
	var r RotaryReducerState

	got := r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingSeconds, Steps: 1 << 40}, cfg)
	if got != -86400*6 {
		t.Fatalf("expected a full range of detents (-518400), got %v", got)
	}
	got = r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingHours, Steps: -1 << 40}, cfg)
	if got != 24*15 {
		t.Fatalf("expected 360, got %v", got)
	}
	got = r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingMinutes, Steps: math.MinInt}, cfg)
	if got != 1440*6 {
		t.Fatalf("expected 8640, got %v", got)
	}
	if len(r.RecentSteps) != 3 {
		t.Fatalf("expected one history entry per turn, got %d", len(r.RecentSteps))
	}
}

func TestReduce_HugeRotaryTurnStaysInRange(t *testing.T) {
	start := time.Now()
	rr := reduceAt(NewDaemonState(), RotaryTurn{Ring: RingSeconds, Steps: 1 << 40}, time.Unix(100, 0), ReducerConfig{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected a huge turn to reduce quickly, took %s", elapsed)
	}
	assertRingsFollowMaster(t, rr.State)
}

func TestRotaryDelta_Defaults(t *testing.T) {
	var r RotaryReducerState
	if got := r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingSeconds, Steps: 1}, RotaryConfig{}); got != -6 {
		t.Fatalf("expected -6 with default config, got %v", got)
	}
	if got := r.rotaryDelta(time.Unix(100, 0), RotaryTurn{Ring: RingSeconds}, RotaryConfig{}); got != 0 {
		t.Fatalf("expected 0 for zero steps, got %v", got)
	}
}

func TestReduce_RotaryTurnInterruptsRunningCountdown(t *testing.T) {
	cfg := ReducerConfig{}
	t0 := time.Unix(100, 0)
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 20}, t0, cfg)
	rr = reduceAt(rr.State, Start{}, t0, cfg)

	rr = reduceAt(rr.State, RotaryTurn{Ring: RingMinutes, Steps: 1}, t0.Add(time.Second), cfg)
	if rr.State.Timer.Run != Paused {
		t.Fatalf("expected Paused, got %s", rr.State.Timer.Run)
	}
	if rr.State.Timer.Display != "00:01:20" {
		t.Fatalf("expected 00:01:20, got %s", rr.State.Timer.Display)
	}
}
