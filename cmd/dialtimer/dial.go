package main

import "math"

// Point is a screen-space position or delta.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Angle is the polar angle of p in degrees, in (-180, 180].
// Screen coordinates grow downwards, so positive angles are clockwise.
func (p Point) Angle() float64 {
	return math.Atan2(p.Y, p.X) * 180 / math.Pi
}

// DialState is the per-ring drag bookkeeping plus the ring's displayed angle.
//
// The displayed angle is always pushed down from the master angle by the
// reducer; while a drag is in progress OnDrag/DragTo produce a candidate ring
// angle which the reducer turns into a new master angle.
//
// DialState is owned by the daemon goroutine (single-owner).
type DialState struct {
	Ring  Ring
	Angle float64

	center   Point
	pointer  Point // pointer position relative to center
	dragging bool

	// angleAtStart is the ring angle when the drag began and
	// startPointerAngle the pointer's polar angle at that moment.
	angleAtStart      float64
	startPointerAngle float64
}

// NewDialState returns an idle dial for ring.
func NewDialState(ring Ring) DialState {
	return DialState{Ring: ring}
}

// Scale is the ring's scale factor relative to the master angle.
func (d *DialState) Scale() float64 { return d.Ring.Scale() }

// SetAngle sets the displayed angle without any further propagation.
func (d *DialState) SetAngle(angle float64) {
	d.Angle = angle
}

// SetCenter records the ring's screen-space center (on layout/resize).
// A drag in progress keeps its absolute pointer position and restarts from
// the current candidate, so re-centering alone does not rotate the ring.
func (d *DialState) SetCenter(c Point) {
	if d.dragging {
		abs := d.pointer.Add(d.center)
		d.angleAtStart = d.candidate()
		d.center = c
		d.pointer = abs.Sub(c)
		d.startPointerAngle = d.pointer.Angle()
		return
	}
	d.center = c
}

// Center returns the ring's screen-space center.
func (d *DialState) Center() Point { return d.center }

// Dragging reports whether a drag is in progress.
func (d *DialState) Dragging() bool { return d.dragging }

// OnDragStart begins a drag at the absolute pointer position pos.
func (d *DialState) OnDragStart(pos Point) {
	d.pointer = pos.Sub(d.center)
	d.angleAtStart = d.Angle
	d.startPointerAngle = d.pointer.Angle()
	d.dragging = true
}

// OnDrag moves the pointer by delta and returns the candidate ring angle.
// ok is false when no drag is in progress.
func (d *DialState) OnDrag(delta Point) (angle float64, ok bool) {
	if !d.dragging {
		return d.Angle, false
	}
	return d.moveTo(d.pointer.Add(delta)), true
}

// DragTo moves the pointer to the absolute position pos and returns the
// candidate ring angle. ok is false when no drag is in progress.
func (d *DialState) DragTo(pos Point) (angle float64, ok bool) {
	if !d.dragging {
		return d.Angle, false
	}
	return d.moveTo(pos.Sub(d.center)), true
}

// OnDragEnd clears the drag bookkeeping; the committed angle is unchanged.
func (d *DialState) OnDragEnd() {
	d.dragging = false
	d.pointer = Point{}
}

func (d *DialState) moveTo(rel Point) float64 {
	d.pointer = rel
	return d.candidate()
}

// candidate is angleAtStart plus the pointer's polar angle change since the
// drag began. The change is not unwrapped: crossing the +-180 seam turns the
// ring by almost a full turn the other way.
func (d *DialState) candidate() float64 {
	return d.angleAtStart + (d.pointer.Angle() - d.startPointerAngle)
}

// MasterCandidate converts a ring angle into the master angle it represents.
func (d *DialState) MasterCandidate(ringAngle float64) float64 {
	return ringAngle / d.Scale()
}
