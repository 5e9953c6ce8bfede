package main

import (
	"math"
	"time"
)

// RotaryConfig is the reducer-side policy for rotary encoder input.
type RotaryConfig struct {
	// VelocityWindowMS is the time window for fast-spin detection.
	VelocityWindowMS int
	// VelocityThreshold is the number of same-direction detents within the
	// window that counts as fast spinning.
	VelocityThreshold int
	// VelocityMultiplier scales each detent while fast spinning.
	VelocityMultiplier float64
}

// RotaryReducerState tracks recent rotary turns for reducer-side velocity detection.
type RotaryReducerState struct {
	RecentSteps []RotaryReducerStep
}

// RotaryReducerStep is one observed rotary turn on a ring at a given time.
// Direction is -1 or +1; Count is the number of detents in the turn.
type RotaryReducerStep struct {
	At        time.Time
	Ring      Ring
	Direction int
	Count     int
}

// addStep records a turn of count detents and returns the number of recent
// detents on the same ring in the same direction within the window
// (including this turn).
//
// Steps older than the window are pruned; the slice is reused in place.
func (r *RotaryReducerState) addStep(now time.Time, ring Ring, direction, count int, windowMS int) int {
	cutoff := now.Add(-time.Duration(windowMS) * time.Millisecond)

	filtered := r.RecentSteps[:0]
	for _, s := range r.RecentSteps {
		if s.At.After(cutoff) {
			filtered = append(filtered, s)
		}
	}
	filtered = append(filtered, RotaryReducerStep{At: now, Ring: ring, Direction: direction, Count: count})
	r.RecentSteps = filtered

	same := 0
	for _, s := range filtered {
		if s.Ring == ring && s.Direction == direction {
			same += s.Count
		}
	}
	return same
}

// maxTurnSteps is the number of detents on ring that spans the whole
// countdown range.
func maxTurnSteps(ring Ring) int {
	return int(math.Round(MaxRange * ring.Scale() / ring.UnitDegrees()))
}

// rotaryDelta converts a RotaryTurn into a ring angle delta, applying the
// fast-spin multiplier. Positive steps add remaining time, which moves the
// ring angle toward negative values.
func (r *RotaryReducerState) rotaryDelta(now time.Time, turn RotaryTurn, cfg RotaryConfig) float64 {
	if turn.Steps == 0 {
		return 0
	}
	dir := 1
	if turn.Steps < 0 {
		dir = -1
	}

	window := cfg.VelocityWindowMS
	if window <= 0 {
		window = defaultRotaryVelocityWindowMS
	}
	threshold := cfg.VelocityThreshold
	if threshold <= 0 {
		threshold = defaultRotaryVelocityThreshold
	}
	mult := cfg.VelocityMultiplier
	if mult <= 0 {
		mult = defaultRotaryVelocityMultiplier
	}

	n := turn.Steps * dir
	if limit := maxTurnSteps(turn.Ring); n > limit || n < 0 {
		n = limit
	}

	// Every detent in a burst counts toward the window.
	steps := float64(n * dir)
	if r.addStep(now, turn.Ring, dir, n, window) >= threshold {
		steps *= mult
	}
	return -steps * turn.Ring.UnitDegrees()
}
