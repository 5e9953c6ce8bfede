package main

import "math"

// cellAspect is how many columns span the height of one terminal row.
// Dial coordinates stretch rows by this factor so rings render round.
const cellAspect = 2.0

const (
	headerRows = 3
	footerRows = 4
	minRadius  = 6.0
)

type ringID int

const (
	ringSeconds ringID = iota
	ringMinutes
	ringHours
)

// ringOrder lists rings from the outermost band inward.
var ringOrder = [...]ringID{ringSeconds, ringMinutes, ringHours}

func (r ringID) String() string {
	switch r {
	case ringSeconds:
		return "seconds"
	case ringMinutes:
		return "minutes"
	case ringHours:
		return "hours"
	default:
		return "unknown"
	}
}

// units is how many labels sit around the ring.
func (r ringID) units() int {
	if r == ringHours {
		return 24
	}
	return 60
}

// labelStep is the spacing between drawn labels.
func (r ringID) labelStep() int {
	if r == ringHours {
		return 2
	}
	return 5
}

// face is the on-screen placement of the three concentric rings.
// CX and CY are in cells; radii are in columns.
type face struct {
	CX, CY float64
	Outer  [3]float64
}

func newFace(width, height int) face {
	usable := float64(height - headerRows - footerRows)
	if usable < 1 {
		usable = 1
	}
	r := math.Min(float64(width)/2-2, (usable/2-0.5)*cellAspect)
	if r < minRadius {
		r = minRadius
	}
	return face{
		CX:    float64(width) / 2,
		CY:    float64(headerRows) + usable/2,
		Outer: [3]float64{ringSeconds: r, ringMinutes: r * 0.7, ringHours: r * 0.42},
	}
}

// center is the shared ring center in dial coordinates.
func (f face) center() (x, y float64) {
	return f.CX, f.CY * cellAspect
}

// toDial converts the center of a cell to dial coordinates (y grows downward).
func toDial(col, row int) (x, y float64) {
	return float64(col) + 0.5, (float64(row) + 0.5) * cellAspect
}

// hitTest reports which ring band contains the cell.
func (f face) hitTest(col, row int) (ringID, bool) {
	x, y := toDial(col, row)
	cx, cy := f.center()
	d := math.Hypot(x-cx, y-cy)
	switch {
	case d <= f.Outer[ringHours]:
		return ringHours, true
	case d <= f.Outer[ringMinutes]:
		return ringMinutes, true
	case d <= f.Outer[ringSeconds]+0.5:
		return ringSeconds, true
	default:
		return 0, false
	}
}

// labelRadius is where a ring's numbers are drawn, inside its band.
func (f face) labelRadius(r ringID) float64 {
	switch r {
	case ringSeconds:
		return (f.Outer[ringSeconds] + f.Outer[ringMinutes]) / 2
	case ringMinutes:
		return (f.Outer[ringMinutes] + f.Outer[ringHours]) / 2
	default:
		return f.Outer[ringHours] * 0.62
	}
}

// polarCell returns the cell at radius and angle, where angle is in degrees
// clockwise from twelve o'clock.
func (f face) polarCell(radius, angle float64) (col, row int) {
	rad := angle * math.Pi / 180
	cx, cy := f.center()
	x := cx + radius*math.Sin(rad)
	y := cy - radius*math.Cos(rad)
	return int(math.Floor(x)), int(math.Floor(y / cellAspect))
}

// labelCell places label index of ring r rotated by the ring's angle.
// A ring at angle -step*n shows label n at twelve o'clock.
func (f face) labelCell(r ringID, index int, ringAngle float64) (col, row int) {
	theta := float64(index)*360/float64(r.units()) + ringAngle
	return f.polarCell(f.labelRadius(r), theta)
}
