package main

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the dial front-end. It renders the daemon's state stream and turns
// mouse and keyboard input into daemon events; it never changes the timer
// itself.
type Model struct {
	keys     keyMap
	help     help.Model
	progress progress.Model
	theme    Theme
	send     func(Event)

	width, height int
	face          face

	state     timerData
	haveState bool
	connErr   error
	ipcErr    error

	dragging bool
	dragRing ringID
	focus    ringID
}

func NewModel(send func(Event), theme Theme) Model {
	p := progress.New(progress.WithGradient(theme.Gradient[0], theme.Gradient[1]))
	p.Width = 30
	return Model{
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: p,
		theme:    theme,
		send:     send,
		focus:    ringMinutes,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// sendCenters tells the daemon where the rings are on screen.
func (m Model) sendCenters() {
	if m.width == 0 {
		return
	}
	x, y := m.face.center()
	for _, r := range ringOrder {
		m.send(DialCenter{Ring: r.String(), X: x, Y: y})
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.face = newFace(m.width, m.height)
		m.help.Width = m.width
		target := 30
		if m.width < 60 {
			target = m.width / 2
		}
		if target < 10 {
			target = 10
		}
		m.progress.Width = target
		m.sendCenters()
		return m, nil

	case stateMsg:
		m.state, m.haveState, m.connErr = msg.Data, true, nil
		if msg.Init {
			// The daemon may have restarted and lost the layout.
			m.sendCenters()
		}
		return m, nil

	case connMsg:
		m.connErr = msg.Err
		return m, nil

	case ipcErrMsg:
		m.ipcErr = msg.Err
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			ring, ok := m.face.hitTest(msg.X, msg.Y)
			if !ok {
				return m
			}
			x, y := toDial(msg.X, msg.Y)
			m.dragging, m.dragRing, m.focus = true, ring, ring
			m.ipcErr = nil
			m.send(DialDragStart{Ring: ring.String(), X: x, Y: y})

		case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
			ring, ok := m.face.hitTest(msg.X, msg.Y)
			if !ok {
				ring = m.focus
			}
			steps := 1
			if msg.Button == tea.MouseButtonWheelDown {
				steps = -1
			}
			m.send(RotaryTurn{Ring: ring.String(), Steps: steps})
		}

	case tea.MouseActionMotion:
		if m.dragging {
			x, y := toDial(msg.X, msg.Y)
			m.send(DialDragTo{Ring: m.dragRing.String(), X: x, Y: y})
		}

	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			m.send(DialDragEnd{Ring: m.dragRing.String()})
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.send(Toggle{})
	case key.Matches(msg, m.keys.Start):
		m.send(Start{})
	case key.Matches(msg, m.keys.Pause):
		m.send(Pause{})
	case key.Matches(msg, m.keys.Up):
		m.send(RotaryTurn{Ring: m.focus.String(), Steps: 1})
	case key.Matches(msg, m.keys.Down):
		m.send(RotaryTurn{Ring: m.focus.String(), Steps: -1})
	case key.Matches(msg, m.keys.NextRing):
		m.focus = (m.focus + 1) % ringID(len(ringOrder))
	case key.Matches(msg, m.keys.PrevRing):
		m.focus = (m.focus + ringID(len(ringOrder)) - 1) % ringID(len(ringOrder))
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}
