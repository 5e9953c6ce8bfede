package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - reducer inputs
// ============================================================================
// Events represent intent from the gesture sources (IPC clients, the terminal
// front-end, evdev knobs) plus observations produced by the effects layer
// (animation frames, command failures).
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TimedEvent wraps a payload event with the time the daemon received it.
// Payload types stay free of timestamps so the IPC codec stays simple.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// DialDragStart begins a drag on a ring at an absolute pointer position.
type DialDragStart struct {
	Ring Ring    `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (DialDragStart) eventMarker() {}

// DialDrag moves the pointer of an in-progress drag by a delta.
type DialDrag struct {
	Ring Ring    `json:"ring"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

func (DialDrag) eventMarker() {}

// DialDragTo moves the pointer of an in-progress drag to an absolute position.
// Useful for sources that report absolute coordinates (terminal mouse).
type DialDragTo struct {
	Ring Ring    `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (DialDragTo) eventMarker() {}

// DialDragEnd finishes a drag.
type DialDragEnd struct {
	Ring Ring `json:"ring"`
}

func (DialDragEnd) eventMarker() {}

// DialCenter reports a ring's screen-space center (layout or resize).
type DialCenter struct {
	Ring Ring    `json:"ring"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (DialCenter) eventMarker() {}

// RotaryTurn is a raw rotary encoder movement on a ring, in detents.
// Positive steps add remaining time. The reducer owns the velocity policy.
type RotaryTurn struct {
	Ring  Ring `json:"ring"`
	Steps int  `json:"steps"`
}

func (RotaryTurn) eventMarker() {}

// Toggle is the single start/pause control.
type Toggle struct{}

func (Toggle) eventMarker() {}

// Start requests the countdown to start (no-op when running or at zero).
type Start struct{}

func (Start) eventMarker() {}

// Pause requests the countdown to pause (no-op unless running).
type Pause struct{}

func (Pause) eventMarker() {}

// SetRemaining sets the countdown to an exact number of seconds.
// Like a drag, it interrupts a running countdown.
type SetRemaining struct {
	Seconds int `json:"seconds"`
}

func (SetRemaining) eventMarker() {}

// ApplyPreset sets the countdown to a named preset from the config.
type ApplyPreset struct {
	Name string `json:"name"`
}

func (ApplyPreset) eventMarker() {}

// ============================================================================
// Internal events (not accepted over IPC)
// ============================================================================

// AnimationFrame is one interpolated value delivered by the AnimationDriver.
// Frames carrying a stale token belong to a cancelled animation and are dropped.
type AnimationFrame struct {
	Token uint64
	Value float64
	Done  bool
	At    time.Time
}

func (AnimationFrame) eventMarker() {}

// CommandFailed is emitted when the effects layer could not execute a Command.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the reducer for a coherent snapshot.
// The reply is delivered by the effects layer so the reducer stays pure.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps events with a type discriminator for JSON marshaling.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
// Only events that external sources may send are accepted.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "dial_drag_start":
		return decodeEventData[DialDragStart](env)
	case "dial_drag":
		return decodeEventData[DialDrag](env)
	case "dial_drag_to":
		return decodeEventData[DialDragTo](env)
	case "dial_drag_end":
		return decodeEventData[DialDragEnd](env)
	case "dial_center":
		return decodeEventData[DialCenter](env)
	case "rotary_turn":
		return decodeEventData[RotaryTurn](env)
	case "set_remaining":
		return decodeEventData[SetRemaining](env)
	case "apply_preset":
		return decodeEventData[ApplyPreset](env)
	case "toggle":
		return Toggle{}, nil
	case "start":
		return Start{}, nil
	case "pause":
		return Pause{}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

func decodeEventData[T Event](env EventEnvelope) (Event, error) {
	var ev T
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("unmarshal %s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return ev, nil
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e.(type) {
	case DialDragStart:
		env.Type = "dial_drag_start"
	case DialDrag:
		env.Type = "dial_drag"
	case DialDragTo:
		env.Type = "dial_drag_to"
	case DialDragEnd:
		env.Type = "dial_drag_end"
	case DialCenter:
		env.Type = "dial_center"
	case RotaryTurn:
		env.Type = "rotary_turn"
	case SetRemaining:
		env.Type = "set_remaining"
	case ApplyPreset:
		env.Type = "apply_preset"
	case Toggle:
		env.Type = "toggle"
		return json.Marshal(env)
	case Start:
		env.Type = "start"
		return json.Marshal(env)
	case Pause:
		env.Type = "pause"
		return json.Marshal(env)
	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	env.Data = data
	return json.Marshal(env)
}
