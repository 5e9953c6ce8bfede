package main

import (
	"fmt"
	"time"
)

// RunState is the countdown's run state.
type RunState int

const (
	// Idle is the initial state and the state after a countdown completes.
	Idle RunState = iota
	// Running means an animation is driving the master angle toward zero.
	Running
	// Paused means a countdown was interrupted (pause or drag) before reaching zero.
	Paused
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// MarshalText encodes the run state by name for JSON payloads.
func (s RunState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a run state name, as found in IPC status replies.
func (s *RunState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("unknown run state: %q", b)
	}
	return nil
}

// DaemonState is the top-level, daemon-owned state container.
//
// All reducer-owned state lives here: the master angle and everything derived
// from it, the per-ring drag bookkeeping and the rotary velocity history.
// Never share *DaemonState with other goroutines; publish StateSnapshot instead.
type DaemonState struct {
	Timer TimerState

	// Dials is indexed by Ring.
	Dials [len(Rings)]DialState

	// Rotary tracks recent rotary detents for fast-spin detection.
	Rotary RotaryReducerState
}

// TimerState is the master angle plus the values derived from it.
// Derived fields are recomputed on every mutation so reads are never stale.
type TimerState struct {
	// MasterAngle is the single source of truth, in seconds-ring degrees.
	MasterAngle float64

	Run RunState

	// Time and Display are derived from MasterAngle.
	Time    CountdownTime
	Display string

	// Animation describes the in-flight countdown, if any.
	Animation AnimationState

	// lastToken is the most recently issued animation token.
	lastToken uint64
}

// AnimationState identifies the current countdown animation.
// Frames whose token does not match an active animation are stale.
type AnimationState struct {
	Active    bool
	Token     uint64
	From      float64
	To        float64
	Duration  time.Duration
	StartedAt time.Time

	// TotalSeconds is the remaining time when the countdown was started.
	TotalSeconds int
}

// NewDaemonState returns the initial state: master angle 0, Idle.
func NewDaemonState() *DaemonState {
	s := &DaemonState{}
	for _, r := range Rings {
		s.Dials[r] = NewDialState(r)
	}
	s.applyMaster(0)
	return s
}

// Dial returns the dial for ring.
func (s *DaemonState) Dial(r Ring) *DialState {
	return &s.Dials[r]
}

// applyMaster sets the master angle and recomputes every derived value:
// the three ring angles, the countdown digits and the formatted readout.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) applyMaster(angle float64) {
	s.Timer.MasterAngle = angle
	for _, r := range Rings {
		s.Dials[r].Ring = r
		s.Dials[r].SetAngle(angle * r.Scale())
	}
	s.Timer.Time = CountdownFromAngles(
		s.Dials[RingSeconds].Angle,
		s.Dials[RingMinutes].Angle,
		s.Dials[RingHours].Angle,
	)
	s.Timer.Display = s.Timer.Time.String()
}

// RemainingSeconds is the remaining countdown in whole seconds.
func (s *DaemonState) RemainingSeconds() int {
	return AngleToSeconds(s.Timer.MasterAngle)
}

// nextAnimationToken issues a fresh token; tokens are never reused.
func (s *DaemonState) nextAnimationToken() uint64 {
	s.Timer.lastToken++
	return s.Timer.lastToken
}

// RingAngles is the displayed rotation of each ring, in degrees.
type RingAngles struct {
	Seconds float64 `json:"seconds"`
	Minutes float64 `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// StateSnapshot is a coherent, copyable view of the timer for other goroutines.
type StateSnapshot struct {
	State            RunState      `json:"state"`
	MasterAngle      float64       `json:"master_angle"`
	Angles           RingAngles    `json:"angles"`
	Time             string        `json:"time"`
	Countdown        CountdownTime `json:"countdown"`
	RemainingSeconds int           `json:"remaining_s"`
	TotalSeconds     int           `json:"total_s"`
	At               time.Time     `json:"at"`
}

// Snapshot copies the externally visible state.
func (s *DaemonState) Snapshot(at time.Time) StateSnapshot {
	return StateSnapshot{
		State:       s.Timer.Run,
		MasterAngle: s.Timer.MasterAngle,
		Angles: RingAngles{
			Seconds: s.Dials[RingSeconds].Angle,
			Minutes: s.Dials[RingMinutes].Angle,
			Hours:   s.Dials[RingHours].Angle,
		},
		Time:             s.Timer.Display,
		Countdown:        s.Timer.Time,
		RemainingSeconds: s.Timer.Time.TotalSeconds(),
		TotalSeconds:     s.Timer.Animation.TotalSeconds,
		At:               at,
	}
}
