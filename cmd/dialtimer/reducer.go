package main

import (
	"time"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (gestures, controls, animation frames, command failures)
//   - Commands: side effects requested by the reducer (animation start/cancel, snapshot replies)
//   - Broadcasts: externally consumable state changes for subscribers
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The reducer must be pure with respect to the outside world: it mutates only
// the DaemonState it is given and never talks to the animation driver directly.
// The daemon loop executes Commands and feeds observations back as Events.

// ==============================
// Broadcasts (state changes)
// ==============================

// StateBroadcast is a reducer-emitted state change for subscribers.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastTimerChanged is emitted whenever the readout, the run state or any
// ring angle changed.
type BroadcastTimerChanged struct {
	Snapshot StateSnapshot
	// RunStateChanged is true when the transition changed the run state.
	// Subscribers should not coalesce those away.
	RunStateChanged bool
	At              time.Time
}

func (BroadcastTimerChanged) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReducerConfig carries the static policy the reducer needs.
type ReducerConfig struct {
	Rotary RotaryConfig

	// Presets maps preset names to countdown durations in seconds.
	Presets map[string]int
}

// ReduceResult is the output of Reduce(): next state plus Commands and Broadcasts.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the timer controller.
//
// Rules:
//   - Must not perform I/O
//   - Must not block
//   - Must not mutate anything outside the returned state
//
// Drag-originated updates cancel the in-flight animation before touching the
// master angle; animation frames go through the same recompute path without
// the interrupt branch.
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = NewDaemonState()
	}

	at := time.Time{}
	if te, ok := e.(TimedEvent); ok {
		at = te.At
		e = te.Event
	}
	if at.IsZero() {
		at = time.Now()
	}

	before := s.Snapshot(at)
	var cmds []Command

	switch ev := e.(type) {
	case DialCenter:
		if d, ok := s.dial(ev.Ring); ok {
			d.SetCenter(Point{X: ev.X, Y: ev.Y})
		}

	case DialDragStart:
		if d, ok := s.dial(ev.Ring); ok {
			cmds = append(cmds, s.interrupt()...)
			d.OnDragStart(Point{X: ev.X, Y: ev.Y})
		}

	case DialDrag:
		if d, ok := s.dial(ev.Ring); ok {
			if angle, dragging := d.OnDrag(Point{X: ev.DX, Y: ev.DY}); dragging {
				cmds = append(cmds, s.updateFromDial(ev.Ring, angle)...)
			}
		}

	case DialDragTo:
		if d, ok := s.dial(ev.Ring); ok {
			if angle, dragging := d.DragTo(Point{X: ev.X, Y: ev.Y}); dragging {
				cmds = append(cmds, s.updateFromDial(ev.Ring, angle)...)
			}
		}

	case DialDragEnd:
		if d, ok := s.dial(ev.Ring); ok {
			d.OnDragEnd()
		}

	case RotaryTurn:
		if _, ok := s.dial(ev.Ring); ok && ev.Steps != 0 {
			delta := s.Rotary.rotaryDelta(at, ev, cfg.Rotary)
			cmds = append(cmds, s.nudgeFromDial(ev.Ring, delta)...)
		}

	case SetRemaining:
		n := ev.Seconds
		if n < 0 {
			n = 0
		}
		if n > maxCountdownSeconds {
			n = maxCountdownSeconds
		}
		cmds = append(cmds, s.updateFromDial(RingSeconds, SecondsToAngle(n))...)

	case ApplyPreset:
		if n, ok := cfg.Presets[ev.Name]; ok {
			cmds = append(cmds, s.updateFromDial(RingSeconds, SecondsToAngle(n))...)
		}

	case Toggle:
		if s.Timer.Run == Running {
			cmds = append(cmds, s.pause()...)
		} else {
			cmds = append(cmds, s.start(at)...)
		}

	case Start:
		cmds = append(cmds, s.start(at)...)

	case Pause:
		cmds = append(cmds, s.pause()...)

	case AnimationFrame:
		s.applyFrame(ev)

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: before})

	case CommandFailed:
		// A failed animation start leaves nothing driving the countdown;
		// freeze where we are.
		if c, ok := ev.Command.(CmdStartAnimation); ok && s.Timer.Animation.Active && s.Timer.Animation.Token == c.Token {
			s.Timer.Animation.Active = false
			s.Timer.Run = Paused
		}

	default:
		// Unknown event type: no-op.
	}

	var bcs []StateBroadcast
	if after := s.Snapshot(at); snapshotChanged(before, after) {
		bcs = append(bcs, BroadcastTimerChanged{
			Snapshot:        after,
			RunStateChanged: before.State != after.State,
			At:              at,
		})
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcs,
	}
}

func (s *DaemonState) dial(r Ring) (*DialState, bool) {
	if r < RingSeconds || r > RingHours {
		return nil, false
	}
	return &s.Dials[r], true
}

// updateFromDial sets MasterAngle = rawRingAngle / scale(ring) and recomputes
// every derived value. A running countdown is interrupted first.
func (s *DaemonState) updateFromDial(r Ring, rawRingAngle float64) []Command {
	cmds := s.interrupt()
	s.applyMaster(rawRingAngle / r.Scale())
	return cmds
}

// nudgeFromDial moves the ring by delta degrees. It equals
// updateFromDial(r, ringAngle+delta) but accumulates in master space, where
// whole detents stay exact multiples of one second.
func (s *DaemonState) nudgeFromDial(r Ring, delta float64) []Command {
	cmds := s.interrupt()
	s.applyMaster(s.Timer.MasterAngle + delta/r.Scale())
	return cmds
}

// interrupt cancels the in-flight animation, if any. A running countdown
// becomes Paused; the master angle stays at the last frame's value.
func (s *DaemonState) interrupt() []Command {
	if !s.Timer.Animation.Active {
		return nil
	}
	token := s.Timer.Animation.Token
	s.Timer.Animation.Active = false
	if s.Timer.Run == Running {
		s.Timer.Run = Paused
	}
	return []Command{CmdCancelAnimation{Token: token}}
}

// start begins the countdown from Idle or Paused. It is a no-op while running
// or when less than one whole second remains.
func (s *DaemonState) start(at time.Time) []Command {
	if s.Timer.Run == Running {
		return nil
	}
	remaining := AngleToSeconds(s.Timer.MasterAngle)
	if remaining <= 0 {
		return nil
	}

	// Snap to the canonical (non-positive) representation so the animation
	// runs monotonically toward zero; the readout does not change.
	s.applyMaster(CanonicalAngle(s.Timer.MasterAngle))

	token := s.nextAnimationToken()
	d := time.Duration(remaining) * time.Second
	s.Timer.Animation = AnimationState{
		Active:       true,
		Token:        token,
		From:         s.Timer.MasterAngle,
		To:           0,
		Duration:     d,
		StartedAt:    at,
		TotalSeconds: remaining,
	}
	s.Timer.Run = Running

	return []Command{CmdStartAnimation{
		Token:    token,
		From:     s.Timer.MasterAngle,
		To:       0,
		Duration: d,
	}}
}

// pause freezes a running countdown at its current value.
func (s *DaemonState) pause() []Command {
	if s.Timer.Run != Running {
		return nil
	}
	return s.interrupt()
}

// applyFrame feeds an animation value through the recompute path.
// Stale frames (cancelled or superseded animations) are dropped.
func (s *DaemonState) applyFrame(f AnimationFrame) {
	a := s.Timer.Animation
	if !a.Active || f.Token != a.Token {
		return
	}
	if f.Done {
		s.applyMaster(a.To)
		s.Timer.Animation.Active = false
		s.Timer.Run = Idle
		return
	}
	s.applyMaster(f.Value)
}

func snapshotChanged(a, b StateSnapshot) bool {
	return a.State != b.State ||
		a.Time != b.Time ||
		a.Angles != b.Angles ||
		a.TotalSeconds != b.TotalSeconds
}
