package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type cellStyle int

const (
	styleNone cellStyle = iota
	styleTrack
	styleSeconds
	styleMinutes
	styleHours
	styleFocused
	stylePointer
	styleCenter
)

type cell struct {
	ch    rune
	style cellStyle
}

// canvas is a grid of styled runes for the dial area.
type canvas struct {
	cells  [][]cell
	width  int
	top    int // screen row of the first canvas row
	height int
}

func newCanvas(width, top, height int) *canvas {
	c := &canvas{width: width, top: top, height: height}
	c.cells = make([][]cell, height)
	for i := range c.cells {
		row := make([]cell, width)
		for j := range row {
			row[j] = cell{ch: ' '}
		}
		c.cells[i] = row
	}
	return c
}

// set writes at a screen position; positions off the canvas are ignored.
func (c *canvas) set(col, row int, ch rune, s cellStyle) {
	row -= c.top
	if row < 0 || row >= c.height || col < 0 || col >= c.width {
		return
	}
	c.cells[row][col] = cell{ch: ch, style: s}
}

func (c *canvas) text(col, row int, s string, st cellStyle) {
	for i, ch := range []rune(s) {
		c.set(col+i, row, ch, st)
	}
}

func (m Model) styleFor(s cellStyle) (lipgloss.Style, bool) {
	switch s {
	case styleTrack:
		return m.theme.Track, true
	case styleSeconds:
		return m.theme.Rings[ringSeconds], true
	case styleMinutes:
		return m.theme.Rings[ringMinutes], true
	case styleHours:
		return m.theme.Rings[ringHours], true
	case styleFocused:
		return m.theme.Focused, true
	case stylePointer:
		return m.theme.Pointer, true
	case styleCenter:
		return m.stateStyle(), true
	default:
		return lipgloss.Style{}, false
	}
}

// render joins runs of equally styled cells into styled strings.
func (c *canvas) render(m Model) string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && row[j].style == row[start].style {
				continue
			}
			run := make([]rune, 0, j-start)
			for _, cl := range row[start:j] {
				run = append(run, cl.ch)
			}
			if st, ok := m.styleFor(row[start].style); ok {
				b.WriteString(st.Render(string(run)))
			} else {
				b.WriteString(string(run))
			}
			start = j
		}
	}
	return b.String()
}

func ringStyle(r ringID) cellStyle {
	switch r {
	case ringSeconds:
		return styleSeconds
	case ringMinutes:
		return styleMinutes
	default:
		return styleHours
	}
}

// readoutUnit is the value of ring r currently at twelve o'clock.
func (d timerData) readoutUnit(r ringID) int {
	switch r {
	case ringSeconds:
		return d.Seconds
	case ringMinutes:
		return d.Minutes
	default:
		return d.Hours
	}
}

func (m Model) drawFace(c *canvas) {
	f := m.face

	for _, r := range ringOrder {
		for a := 0.0; a < 360; a += 2 {
			col, row := f.polarCell(f.Outer[r], a)
			c.set(col, row, '·', styleTrack)
		}
	}

	for _, r := range ringOrder {
		st := ringStyle(r)
		if r == m.focus {
			st = styleFocused
		}
		hot := m.state.readoutUnit(r)
		angle := m.state.angle(r)
		for i := 0; i < r.units(); i += r.labelStep() {
			label := fmt.Sprintf("%02d", i)
			col, row := f.labelCell(r, i, angle)
			c.text(col-1, row, label, st)
		}
		// The value under the pointer is drawn even between labels.
		col, row := f.labelCell(r, hot, angle)
		c.text(col-1, row, fmt.Sprintf("%02d", hot), stylePointer)
	}

	col, row := f.polarCell(f.Outer[ringSeconds]+cellAspect, 0)
	c.set(col, row, '▼', stylePointer)

	cx, cy := f.center()
	c.set(int(cx), int(cy/cellAspect), m.stateGlyph(), styleCenter)
}

func (m Model) stateGlyph() rune {
	switch m.state.State {
	case "running":
		return '▶'
	case "paused":
		return '‖'
	default:
		return '■'
	}
}

func (m Model) stateStyle() lipgloss.Style {
	switch m.state.State {
	case "running":
		return m.theme.Running
	case "paused":
		return m.theme.Paused
	default:
		return m.theme.Idle
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	readout := "--:--:--"
	state := "connecting"
	if m.haveState {
		readout, state = m.state.Time, m.state.State
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.Title.Render("dialtimer"),
		m.theme.Readout.Render(readout),
		m.stateStyle().Render(state),
	)
	header = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, header)

	faceRows := m.height - headerRows - footerRows
	if faceRows < 0 {
		faceRows = 0
	}
	c := newCanvas(m.width, headerRows, faceRows)
	m.drawFace(c)

	var bar string
	if m.state.TotalSeconds > 0 {
		bar = m.progress.ViewAs(float64(m.state.RemainingSeconds) / float64(m.state.TotalSeconds))
	} else {
		bar = m.theme.Dim.Render("no countdown started")
	}

	status := m.theme.Dim.Render("ring: " + m.focus.String())
	switch {
	case m.connErr != nil:
		status = m.theme.Error.Render("state stream: " + m.connErr.Error())
	case m.ipcErr != nil:
		status = m.theme.Error.Render(m.ipcErr.Error())
	}

	return strings.Join([]string{
		header,
		"",
		"",
		c.render(m),
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, bar),
		status,
		m.help.View(m.keys),
	}, "\n")
}
