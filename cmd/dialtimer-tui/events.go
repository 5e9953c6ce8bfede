package main

import (
	"encoding/json"
	"fmt"
)

// Event payloads (duplicated from the daemon for a standalone binary)
type Event interface{}

type Toggle struct{}

type Start struct{}

type Pause struct{}

type RotaryTurn struct {
	Ring  string `json:"ring"`
	Steps int    `json:"steps"`
}

type DialCenter struct {
	Ring string  `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type DialDragStart struct {
	Ring string  `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type DialDragTo struct {
	Ring string  `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type DialDragEnd struct {
	Ring string `json:"ring"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope
	var payload any

	switch e := ev.(type) {
	case Toggle:
		env.Type = "toggle"
	case Start:
		env.Type = "start"
	case Pause:
		env.Type = "pause"
	case RotaryTurn:
		env.Type, payload = "rotary_turn", e
	case DialCenter:
		env.Type, payload = "dial_center", e
	case DialDragStart:
		env.Type, payload = "dial_drag_start", e
	case DialDragTo:
		env.Type, payload = "dial_drag_to", e
	case DialDragEnd:
		env.Type, payload = "dial_drag_end", e
	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// ============================================================================
// State stream
// ============================================================================

// timerData is the "data" payload of timer_init / timer_changed.
type timerData struct {
	State            string  `json:"state"`
	MasterAngle      float64 `json:"master_angle"`
	Time             string  `json:"time"`
	Hours            int     `json:"hours"`
	Minutes          int     `json:"minutes"`
	Seconds          int     `json:"seconds"`
	RemainingSeconds int     `json:"remaining_s"`
	TotalSeconds     int     `json:"total_s"`
	Angles           struct {
		Seconds float64 `json:"seconds"`
		Minutes float64 `json:"minutes"`
		Hours   float64 `json:"hours"`
	} `json:"angles"`
}

// angle returns the displayed rotation of ring r.
func (d timerData) angle(r ringID) float64 {
	switch r {
	case ringSeconds:
		return d.Angles.Seconds
	case ringMinutes:
		return d.Angles.Minutes
	default:
		return d.Angles.Hours
	}
}

type stateEnvelope struct {
	Type string    `json:"type"`
	Data timerData `json:"data"`
}
