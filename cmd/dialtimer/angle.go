package main

import (
	"fmt"
	"math"
)

// ============================================================================
// Angle math
// ============================================================================
//
// The timer keeps a single master angle in degrees. At the seconds-ring scale
// one second of countdown is 360/60 degrees; the full countdown span is 24h.
//
// A positive master angle counts "backwards" from 24h and a non-positive one
// counts up from zero (see Normalize). That asymmetry is what makes dragging a
// dial in one direction add time and the other direction remove it.
// ============================================================================

const (
	// MaxRange is the span of the countdown expressed in seconds-ring degrees (24h).
	MaxRange = 24 * 60 * 360

	// degreesPerSecond is one second of countdown at the seconds-ring scale.
	degreesPerSecond = 360.0 / 60.0

	// maxCountdownSeconds is the largest representable remaining time (23:59:59).
	maxCountdownSeconds = 24*60*60 - 1
)

// Ring identifies one of the three concentric dials.
type Ring int

const (
	RingSeconds Ring = iota
	RingMinutes
	RingHours
)

// Rings lists every ring, innermost first.
var Rings = [...]Ring{RingSeconds, RingMinutes, RingHours}

// Scale is the ring's scale factor relative to the master angle.
func (r Ring) Scale() float64 {
	switch r {
	case RingMinutes:
		return 1.0 / 60.0
	case RingHours:
		return 1.0 / 1440.0
	default:
		return 1.0
	}
}

// UnitDegrees is the ring angle of one unit on the ring's face
// (one second, one minute or one hour).
func (r Ring) UnitDegrees() float64 {
	if r == RingHours {
		return 360.0 / 24.0
	}
	return 360.0 / 60.0
}

// UnitCount is the number of units printed around the ring's face.
func (r Ring) UnitCount() int {
	if r == RingHours {
		return 24
	}
	return 60
}

func (r Ring) String() string {
	switch r {
	case RingSeconds:
		return "seconds"
	case RingMinutes:
		return "minutes"
	case RingHours:
		return "hours"
	default:
		return fmt.Sprintf("Ring(%d)", int(r))
	}
}

// MarshalText encodes the ring by name so it can be used in JSON and YAML.
func (r Ring) MarshalText() ([]byte, error) {
	if r < RingSeconds || r > RingHours {
		return nil, fmt.Errorf("invalid ring: %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts the ring names plus the short forms s/m/h.
func (r *Ring) UnmarshalText(b []byte) error {
	v, err := ParseRing(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRing parses a ring name.
func ParseRing(s string) (Ring, error) {
	switch s {
	case "seconds", "second", "sec", "s":
		return RingSeconds, nil
	case "minutes", "minute", "min", "m":
		return RingMinutes, nil
	case "hours", "hour", "h":
		return RingHours, nil
	default:
		return 0, fmt.Errorf("unknown ring: %q (must be seconds, minutes or hours)", s)
	}
}

// Normalize reduces a master angle into [0, MaxRange).
//
// For angle > 0 it returns (MaxRange - angle mod MaxRange) mod MaxRange,
// otherwise -(angle mod MaxRange). Positive inputs mirror around zero, so the
// fixed point lives in CanonicalAngle rather than in Normalize itself.
func Normalize(angle float64) float64 {
	if angle > 0 {
		n := math.Mod(MaxRange-math.Mod(angle, MaxRange), MaxRange)
		// MaxRange - tiny may round up to MaxRange itself.
		if n >= MaxRange {
			return 0
		}
		return n
	}
	n := -math.Mod(angle, MaxRange)
	if n == 0 {
		// Collapse -0 so the result is never negative zero.
		return 0
	}
	return n
}

// CanonicalAngle is the non-positive master angle with the same readout as
// angle. It is a fixed point of itself: CanonicalAngle(CanonicalAngle(a)) ==
// CanonicalAngle(a), and Normalize(CanonicalAngle(a)) == Normalize(a).
func CanonicalAngle(angle float64) float64 {
	n := Normalize(angle)
	if n == 0 {
		return 0
	}
	return -n
}

// toTimeUnit converts a ring angle already divided into clock units into a
// countdown digit in [0, size). Larger values are further from zero, so the
// digit grows as the underlying angle moves away from zero in the countdown
// direction.
func toTimeUnit(value float64, size int) int {
	s := float64(size)
	if value < 0 {
		// floor(size - v) mod size == floor(|v| mod size) for v < 0; the
		// latter avoids overflowing the int conversion on huge angles.
		return int(math.Floor(math.Mod(-value, s))) % size
	}
	return int(math.Floor(s-math.Mod(value, s))) % size
}

// AngleToSeconds is the remaining countdown, in whole seconds, for a master angle.
func AngleToSeconds(angle float64) int {
	return int(math.Floor(Normalize(angle) / degreesPerSecond))
}

// SecondsToAngle is the master angle representing n seconds remaining.
func SecondsToAngle(n int) float64 {
	return -float64(n) * degreesPerSecond
}

// CountdownTime is the digital readout derived from the master angle.
type CountdownTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CountdownFromAngles derives the readout from the three ring angles, each
// converted into its own clock unit.
func CountdownFromAngles(secAngle, minAngle, hourAngle float64) CountdownTime {
	return CountdownTime{
		Hours:   toTimeUnit(hourAngle/RingHours.UnitDegrees(), 24),
		Minutes: toTimeUnit(minAngle/RingMinutes.UnitDegrees(), 60),
		Seconds: toTimeUnit(secAngle/RingSeconds.UnitDegrees(), 60),
	}
}

// CountdownFromSeconds splits a remaining duration in seconds into a readout.
func CountdownFromSeconds(n int) CountdownTime {
	if n < 0 {
		n = 0
	}
	n %= maxCountdownSeconds + 1
	return CountdownTime{
		Hours:   n / 3600,
		Minutes: (n / 60) % 60,
		Seconds: n % 60,
	}
}

// TotalSeconds is the readout expressed in seconds.
func (c CountdownTime) TotalSeconds() int {
	return c.Hours*3600 + c.Minutes*60 + c.Seconds
}

func (c CountdownTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}
