package main

import (
	"context"
	"time"
)

// ============================================================================
// Animation driver
// ============================================================================
//
// The driver linearly interpolates a value from From to To over Duration and
// emits one frame per tick. It never touches timer state: frames are handed to
// the daemon loop as AnimationFrame events and the reducer decides whether
// they still apply (token check).
//
// Cancellation is through the context passed to Animate; after ctx is done no
// further frames are emitted.
// ============================================================================

// AnimationSpec is a linear animation request.
type AnimationSpec struct {
	Token    uint64
	From     float64
	To       float64
	Duration time.Duration
}

// AnimationDriver produces a monotonically interpolated value stream.
// Animate blocks until the animation completes or ctx is canceled.
type AnimationDriver interface {
	Animate(ctx context.Context, spec AnimationSpec, emit func(AnimationFrame))
}

// Clock provides time for animations. Tests inject a fake clock to control
// interpolation deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// LinearDriver emits frames at a fixed rate using a time.Ticker.
type LinearDriver struct {
	// Interval between frames.
	Interval time.Duration
	// Clock is the time source; nil means system time.
	Clock Clock
	// Ticks, if set, replaces the internal ticker (tests).
	Ticks func(time.Duration) (<-chan time.Time, func())
}

// NewLinearDriver returns a driver emitting updateHz frames per second.
func NewLinearDriver(updateHz int) *LinearDriver {
	if updateHz <= 0 {
		updateHz = defaultUpdateHz
	}
	return &LinearDriver{
		Interval: time.Second / time.Duration(updateHz),
		Clock:    realClock{},
	}
}

// Animate runs the animation described by spec, calling emit for each frame.
// The final frame carries exactly spec.To with Done set.
func (d *LinearDriver) Animate(ctx context.Context, spec AnimationSpec, emit func(AnimationFrame)) {
	clock := d.Clock
	if clock == nil {
		clock = realClock{}
	}
	start := clock.Now()

	if spec.Duration <= 0 {
		if ctx.Err() == nil {
			emit(AnimationFrame{Token: spec.Token, Value: spec.To, Done: true, At: start})
		}
		return
	}

	interval := d.Interval
	if interval <= 0 {
		interval = time.Second / defaultUpdateHz
	}
	ticks, stop := d.ticker(interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			now := clock.Now()
			if ctx.Err() != nil {
				return
			}
			progress := float64(now.Sub(start)) / float64(spec.Duration)
			if progress >= 1.0 {
				emit(AnimationFrame{Token: spec.Token, Value: spec.To, Done: true, At: now})
				return
			}
			if progress < 0 {
				progress = 0
			}
			emit(AnimationFrame{
				Token: spec.Token,
				Value: lerp(spec.From, spec.To, progress),
				At:    now,
			})
		}
	}
}

func (d *LinearDriver) ticker(interval time.Duration) (<-chan time.Time, func()) {
	if d.Ticks != nil {
		return d.Ticks(interval)
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// lerp interpolates from a to b; t is clamped to [0, 1].
func lerp(a, b, t float64) float64 {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return a + (b-a)*t
}
