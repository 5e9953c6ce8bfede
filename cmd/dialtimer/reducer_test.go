package main

import (
	"math"
	"testing"
	"time"
)

var testT0 = time.Unix(1000, 0).UTC()

// reduceAt drives the reducer with a timestamped event, the way the daemon does.
func reduceAt(s *DaemonState, ev Event, at time.Time, cfg ReducerConfig) ReduceResult {
	return Reduce(s, TimedEvent{Event: ev, At: at}, cfg)
}

func assertRingsFollowMaster(t *testing.T, s *DaemonState) {
	t.Helper()
	for _, r := range Rings {
		want := s.Timer.MasterAngle * r.Scale()
		if got := s.Dials[r].Angle; got != want {
			t.Fatalf("ring %s: expected angle %v, got %v", r, want, got)
		}
	}
	want := CountdownFromAngles(s.Dials[RingSeconds].Angle, s.Dials[RingMinutes].Angle, s.Dials[RingHours].Angle)
	if s.Timer.Time != want || s.Timer.Display != want.String() {
		t.Fatalf("stale readout: expected %s, got %s (%+v)", want, s.Timer.Display, s.Timer.Time)
	}
}

func singleStart(t *testing.T, cmds []Command) CmdStartAnimation {
	t.Helper()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d (%v)", len(cmds), cmds)
	}
	c, ok := cmds[0].(CmdStartAnimation)
	if !ok {
		t.Fatalf("expected CmdStartAnimation, got %T", cmds[0])
	}
	return c
}

func TestReduce_InitialState(t *testing.T) {
	s := NewDaemonState()
	if s.Timer.Run != Idle {
		t.Fatalf("expected Idle, got %s", s.Timer.Run)
	}
	if s.Timer.MasterAngle != 0 || s.Timer.Display != "00:00:00" {
		t.Fatalf("expected 0 / 00:00:00, got %v / %s", s.Timer.MasterAngle, s.Timer.Display)
	}
	assertRingsFollowMaster(t, s)
}

func TestReduce_StartAtZeroIsNoOp(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, Start{}, testT0, ReducerConfig{})

	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands, got %v", rr.Commands)
	}
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcasts, got %d", len(rr.Broadcasts))
	}
	if rr.State.Timer.Run != Idle {
		t.Fatalf("expected Idle, got %s", rr.State.Timer.Run)
	}

	// Less than one whole second left is still nothing to count down.
	rr.State.updateFromDial(RingSeconds, -3)
	rr = reduceAt(rr.State, Toggle{}, testT0, ReducerConfig{})
	if len(rr.Commands) != 0 || rr.State.Timer.Run != Idle {
		t.Fatalf("expected no-op for sub-second remaining, got %v / %s", rr.Commands, rr.State.Timer.Run)
	}
}

func TestReduce_FiveSecondsRunToZero(t *testing.T) {
	cfg := ReducerConfig{}
	s := NewDaemonState()

	rr := reduceAt(s, SetRemaining{Seconds: 5}, testT0, cfg)
	if rr.State.Timer.Display != "00:00:05" {
		t.Fatalf("expected 00:00:05, got %s", rr.State.Timer.Display)
	}

	rr = reduceAt(rr.State, Start{}, testT0, cfg)
	c := singleStart(t, rr.Commands)
	if c.From != -30 || c.To != 0 || c.Duration != 5*time.Second {
		t.Fatalf("expected animation -30 -> 0 over 5s, got %s", c)
	}
	if rr.State.Timer.Run != Running {
		t.Fatalf("expected Running, got %s", rr.State.Timer.Run)
	}
	if rr.State.Timer.Animation.TotalSeconds != 5 {
		t.Fatalf("expected total 5s, got %d", rr.State.Timer.Animation.TotalSeconds)
	}

	// Mid-way frames count down the readout.
	prev := 5
	for i, v := range []float64{-27, -24, -18, -12, -6, -0.5} {
		rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Value: v}, testT0.Add(time.Duration(i)*time.Second), cfg)
		got := rr.State.RemainingSeconds()
		if got > prev {
			t.Fatalf("remaining increased from %d to %d at frame %v", prev, got, v)
		}
		prev = got
		assertRingsFollowMaster(t, rr.State)
		if rr.State.Timer.Run != Running {
			t.Fatalf("expected Running during frames, got %s", rr.State.Timer.Run)
		}
	}
	if rr.State.Timer.Display != "00:00:00" {
		t.Fatalf("expected 00:00:00 just before completion, got %s", rr.State.Timer.Display)
	}

	rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Value: 0, Done: true}, testT0.Add(5*time.Second), cfg)
	if rr.State.Timer.Run != Idle {
		t.Fatalf("expected Idle after completion, got %s", rr.State.Timer.Run)
	}
	if rr.State.Timer.MasterAngle != 0 || rr.State.Timer.Display != "00:00:00" {
		t.Fatalf("expected 0 / 00:00:00, got %v / %s", rr.State.Timer.MasterAngle, rr.State.Timer.Display)
	}
	if rr.State.Timer.Animation.Active {
		t.Fatalf("expected no active animation after completion")
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected 1 broadcast on completion, got %d", len(rr.Broadcasts))
	}
	if bc := rr.Broadcasts[0].(BroadcastTimerChanged); !bc.RunStateChanged {
		t.Fatalf("expected completion broadcast to mark a run-state change")
	}
}

func TestReduce_StartSnapsPositiveMasterToCanonical(t *testing.T) {
	s := NewDaemonState()
	// +6 degrees on the seconds ring reads 23:59:59.
	s.updateFromDial(RingSeconds, 6)
	before := s.Timer.Display

	rr := reduceAt(s, Start{}, testT0, ReducerConfig{})
	c := singleStart(t, rr.Commands)

	if rr.State.Timer.Display != before {
		t.Fatalf("expected readout %s to survive the snap, got %s", before, rr.State.Timer.Display)
	}
	if rr.State.Timer.MasterAngle > 0 {
		t.Fatalf("expected non-positive master after snap, got %v", rr.State.Timer.MasterAngle)
	}
	if c.From != rr.State.Timer.MasterAngle {
		t.Fatalf("expected animation to start at the snapped master %v, got %v", rr.State.Timer.MasterAngle, c.From)
	}
	if c.Duration != time.Duration(maxCountdownSeconds)*time.Second {
		t.Fatalf("expected %ds duration, got %s", maxCountdownSeconds, c.Duration)
	}
}

func TestReduce_DragWhileRunningPausesAndDropsStaleFrames(t *testing.T) {
	cfg := ReducerConfig{}
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 60}, testT0, cfg)
	rr = reduceAt(rr.State, Start{}, testT0, cfg)
	c := singleStart(t, rr.Commands)

	rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Value: -300}, testT0.Add(10*time.Second), cfg)
	if rr.State.Timer.Display != "00:00:50" {
		t.Fatalf("expected 00:00:50, got %s", rr.State.Timer.Display)
	}

	rr = reduceAt(rr.State, DialCenter{Ring: RingSeconds, X: 0, Y: 0}, testT0, cfg)
	rr = reduceAt(rr.State, DialDragStart{Ring: RingSeconds, X: 10, Y: 0}, testT0.Add(11*time.Second), cfg)

	if rr.State.Timer.Run != Paused {
		t.Fatalf("expected Paused on drag start, got %s", rr.State.Timer.Run)
	}
	if len(rr.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(rr.Commands))
	}
	if cancel, ok := rr.Commands[0].(CmdCancelAnimation); !ok || cancel.Token != c.Token {
		t.Fatalf("expected CmdCancelAnimation(token=%d), got %v", c.Token, rr.Commands[0])
	}
	if rr.State.Timer.MasterAngle != -300 {
		t.Fatalf("expected master frozen at -300, got %v", rr.State.Timer.MasterAngle)
	}

	// A frame already in flight from the cancelled animation changes nothing.
	rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Value: -250}, testT0.Add(12*time.Second), cfg)
	if rr.State.Timer.MasterAngle != -300 {
		t.Fatalf("expected stale frame to be dropped, master=%v", rr.State.Timer.MasterAngle)
	}
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcast for a stale frame, got %d", len(rr.Broadcasts))
	}
	rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Done: true}, testT0.Add(13*time.Second), cfg)
	if rr.State.Timer.Run != Paused || rr.State.Timer.MasterAngle != -300 {
		t.Fatalf("expected stale completion to be dropped, got %s / %v", rr.State.Timer.Run, rr.State.Timer.MasterAngle)
	}
}

func TestReduce_DragUpdatesMasterWithoutLag(t *testing.T) {
	cfg := ReducerConfig{}
	s := NewDaemonState()
	rr := reduceAt(s, DialCenter{Ring: RingMinutes, X: 50, Y: 50}, testT0, cfg)
	rr = reduceAt(rr.State, DialDragStart{Ring: RingMinutes, X: 60, Y: 50}, testT0, cfg)

	rr = reduceAt(rr.State, DialDrag{Ring: RingMinutes, DX: -10, DY: -10}, testT0, cfg)
	ring := rr.State.Dials[RingMinutes].Angle
	if math.Abs(ring-(-90)) > 1e-9 {
		t.Fatalf("expected minutes ring at -90 after the first drag event, got %v", ring)
	}
	assertRingsFollowMaster(t, rr.State)
	if got := rr.State.RemainingSeconds(); got < 899 || got > 900 {
		t.Fatalf("expected about 15 minutes remaining, got %ds", got)
	}

	rr = reduceAt(rr.State, DialDragEnd{Ring: RingMinutes}, testT0, cfg)
	if rr.State.Dials[RingMinutes].Dragging() {
		t.Fatalf("expected drag to have ended")
	}
	if math.Abs(rr.State.Dials[RingMinutes].Angle-(-90)) > 1e-9 {
		t.Fatalf("expected angle kept after drag end, got %v", rr.State.Dials[RingMinutes].Angle)
	}
}

func TestReduce_DragAcrossSeamReadout(t *testing.T) {
	cfg := ReducerConfig{}
	rr := reduceAt(NewDaemonState(), DialDragStart{Ring: RingSeconds, X: -10, Y: 1}, testT0, cfg)
	rr = reduceAt(rr.State, DialDragTo{Ring: RingSeconds, X: -10, Y: -1}, testT0, cfg)

	if got := rr.State.Dials[RingSeconds].Angle; math.Abs(got-(-348.5788)) > 1e-3 {
		t.Fatalf("expected seconds ring at about -348.58, got %v", got)
	}
	if rr.State.Timer.Display != "00:00:58" {
		t.Fatalf("expected 00:00:58, got %s", rr.State.Timer.Display)
	}
	assertRingsFollowMaster(t, rr.State)
}

func TestReduce_DragEventsWithoutStartAreIgnored(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, DialDragTo{Ring: RingSeconds, X: 0, Y: 10}, testT0, ReducerConfig{})
	if rr.State.Timer.MasterAngle != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no change, got master=%v broadcasts=%d", rr.State.Timer.MasterAngle, len(rr.Broadcasts))
	}

	rr = reduceAt(rr.State, DialDrag{Ring: Ring(7), DX: 1}, testT0, ReducerConfig{})
	if rr.State.Timer.MasterAngle != 0 {
		t.Fatalf("expected invalid ring to be ignored")
	}
}

func TestReduce_HoursRingTwoHours(t *testing.T) {
	s := NewDaemonState()
	s.updateFromDial(RingHours, -30)
	if s.Timer.Display != "02:00:00" {
		t.Fatalf("expected 02:00:00, got %s", s.Timer.Display)
	}
	assertRingsFollowMaster(t, s)

	// The same through a rotary knob on the hours ring.
	rr := reduceAt(NewDaemonState(), RotaryTurn{Ring: RingHours, Steps: 2}, testT0, ReducerConfig{})
	if rr.State.Timer.Display != "02:00:00" {
		t.Fatalf("expected 02:00:00 after two hour detents, got %s", rr.State.Timer.Display)
	}
}

func TestReduce_RingsFollowMasterAfterEveryUpdate(t *testing.T) {
	cfg := ReducerConfig{Presets: map[string]int{"tea": 180}}
	s := NewDaemonState()
	events := []Event{
		DialCenter{Ring: RingSeconds},
		RotaryTurn{Ring: RingMinutes, Steps: 3},
		RotaryTurn{Ring: RingSeconds, Steps: -1},
		DialDragStart{Ring: RingSeconds, X: 5, Y: 0},
		DialDragTo{Ring: RingSeconds, X: 3, Y: -4},
		DialDragEnd{Ring: RingSeconds},
		ApplyPreset{Name: "tea"},
		SetRemaining{Seconds: 3725},
		RotaryTurn{Ring: RingHours, Steps: -1},
		Start{},
		Pause{},
	}
	for i, ev := range events {
		rr := reduceAt(s, ev, testT0.Add(time.Duration(i)*time.Second), cfg)
		s = rr.State
		assertRingsFollowMaster(t, s)
	}
}

func TestReduce_ToggleStartsAndPauses(t *testing.T) {
	cfg := ReducerConfig{}
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 90}, testT0, cfg)

	rr = reduceAt(rr.State, Toggle{}, testT0, cfg)
	c := singleStart(t, rr.Commands)

	rr = reduceAt(rr.State, AnimationFrame{Token: c.Token, Value: -270}, testT0.Add(45*time.Second), cfg)
	rr = reduceAt(rr.State, Toggle{}, testT0.Add(45*time.Second), cfg)
	if rr.State.Timer.Run != Paused {
		t.Fatalf("expected Paused, got %s", rr.State.Timer.Run)
	}
	if len(rr.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(rr.Commands))
	}
	if _, ok := rr.Commands[0].(CmdCancelAnimation); !ok {
		t.Fatalf("expected CmdCancelAnimation, got %T", rr.Commands[0])
	}
	if rr.State.Timer.Display != "00:00:45" {
		t.Fatalf("expected frozen 00:00:45, got %s", rr.State.Timer.Display)
	}

	// Resume from Paused with a fresh token.
	rr = reduceAt(rr.State, Toggle{}, testT0.Add(50*time.Second), cfg)
	c2 := singleStart(t, rr.Commands)
	if c2.Token == c.Token {
		t.Fatalf("expected a fresh token on resume")
	}
	if c2.Duration != 45*time.Second {
		t.Fatalf("expected 45s left, got %s", c2.Duration)
	}
}

func TestReduce_PauseOnlyWhileRunning(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 10}, testT0, ReducerConfig{})
	rr = reduceAt(rr.State, Pause{}, testT0, ReducerConfig{})
	if rr.State.Timer.Run != Idle || len(rr.Commands) != 0 {
		t.Fatalf("expected pause to be a no-op while Idle, got %s / %v", rr.State.Timer.Run, rr.Commands)
	}
}

func TestReduce_StartWhileRunningIsNoOp(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 10}, testT0, ReducerConfig{})
	rr = reduceAt(rr.State, Start{}, testT0, ReducerConfig{})
	_ = singleStart(t, rr.Commands)

	rr = reduceAt(rr.State, Start{}, testT0, ReducerConfig{})
	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands, got %v", rr.Commands)
	}
}

func TestReduce_SetRemainingClamps(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 100000}, testT0, ReducerConfig{})
	if rr.State.Timer.Display != "23:59:59" {
		t.Fatalf("expected 23:59:59, got %s", rr.State.Timer.Display)
	}
	rr = reduceAt(rr.State, SetRemaining{Seconds: -4}, testT0, ReducerConfig{})
	if rr.State.Timer.Display != "00:00:00" {
		t.Fatalf("expected 00:00:00, got %s", rr.State.Timer.Display)
	}
}

func TestReduce_ApplyPreset(t *testing.T) {
	cfg := ReducerConfig{Presets: map[string]int{"pomodoro": 25 * 60}}
	s := NewDaemonState()

	rr := reduceAt(s, ApplyPreset{Name: "pomodoro"}, testT0, cfg)
	if rr.State.Timer.Display != "00:25:00" {
		t.Fatalf("expected 00:25:00, got %s", rr.State.Timer.Display)
	}

	rr = reduceAt(rr.State, ApplyPreset{Name: "missing"}, testT0, cfg)
	if rr.State.Timer.Display != "00:25:00" || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected unknown preset to be ignored, got %s", rr.State.Timer.Display)
	}
}

func TestReduce_PresetInterruptsRunningCountdown(t *testing.T) {
	cfg := ReducerConfig{Presets: map[string]int{"tea": 180}}
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 30}, testT0, cfg)
	rr = reduceAt(rr.State, Start{}, testT0, cfg)
	c := singleStart(t, rr.Commands)

	rr = reduceAt(rr.State, ApplyPreset{Name: "tea"}, testT0, cfg)
	if rr.State.Timer.Run != Paused {
		t.Fatalf("expected Paused, got %s", rr.State.Timer.Run)
	}
	if len(rr.Commands) != 1 || rr.Commands[0] != (CmdCancelAnimation{Token: c.Token}) {
		t.Fatalf("expected cancel of token %d, got %v", c.Token, rr.Commands)
	}
	if rr.State.Timer.Display != "00:03:00" {
		t.Fatalf("expected 00:03:00, got %s", rr.State.Timer.Display)
	}
}

func TestReduce_CommandFailedFreezesCountdown(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 10}, testT0, ReducerConfig{})
	rr = reduceAt(rr.State, Start{}, testT0, ReducerConfig{})
	c := singleStart(t, rr.Commands)

	rr = reduceAt(rr.State, CommandFailed{Command: c, Err: errNoDriver{}, At: testT0}, testT0, ReducerConfig{})
	if rr.State.Timer.Run != Paused {
		t.Fatalf("expected Paused after failed start, got %s", rr.State.Timer.Run)
	}
	if rr.State.Timer.Animation.Active {
		t.Fatalf("expected animation to be inactive")
	}
}

func TestReduce_RequestStateSnapshot(t *testing.T) {
	s := NewDaemonState()
	rr := reduceAt(s, SetRemaining{Seconds: 42}, testT0, ReducerConfig{})

	reply := make(chan StateSnapshot, 1)
	rr = reduceAt(rr.State, RequestStateSnapshot{Reply: reply}, testT0, ReducerConfig{})
	if len(rr.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(rr.Commands))
	}
	cmd, ok := rr.Commands[0].(CmdPublishStateSnapshot)
	if !ok {
		t.Fatalf("expected CmdPublishStateSnapshot, got %T", rr.Commands[0])
	}
	if cmd.Snapshot.Time != "00:00:42" || cmd.Snapshot.RemainingSeconds != 42 {
		t.Fatalf("expected 00:00:42 / 42, got %s / %d", cmd.Snapshot.Time, cmd.Snapshot.RemainingSeconds)
	}
	if cmd.Snapshot.State != Idle {
		t.Fatalf("expected Idle snapshot, got %s", cmd.Snapshot.State)
	}
}

func TestReduce_NilStateAndUnknownEvent(t *testing.T) {
	rr := Reduce(nil, unknownEvent{}, ReducerConfig{})
	if rr.State == nil {
		t.Fatalf("expected non-nil state")
	}
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected unknown event to be a no-op")
	}
}

// unknownEvent is an event type the reducer does not handle.
type unknownEvent struct{}

func (unknownEvent) eventMarker() {}
