package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// dialtimer-ctl - Command-line IPC Client
// ============================================================================
// This tool sends gestures to the dialtimer daemon via IPC.
//
// Usage:
//   dialtimer-ctl toggle
//   dialtimer-ctl set 3m
//   dialtimer-ctl preset tea
//   dialtimer-ctl turn minutes -2
//   dialtimer-ctl drag seconds 0,-10 10,0
//   dialtimer-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/dialtimer.sock)
// ============================================================================

// Event payloads (duplicated from the daemon for a standalone binary)
type Event interface{}

type Toggle struct{}

type Start struct{}

type Pause struct{}

type SetRemaining struct {
	Seconds int `json:"seconds"`
}

type ApplyPreset struct {
	Name string `json:"name"`
}

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

// status is a query, not an event.
type status struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StateSnapshot is the subset of the daemon snapshot printed by "status".
type StateSnapshot struct {
	State            string `json:"state"`
	Time             string `json:"time"`
	RemainingSeconds int    `json:"remaining_s"`
	TotalSeconds     int    `json:"total_s"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *StateSnapshot `json:"state,omitempty"`
}

func main() {
	socketPath := "/tmp/dialtimer.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var evs []Event

	switch args[0] {
	case "toggle", "t":
		evs = []Event{Toggle{}}

	case "start":
		evs = []Event{Start{}}

	case "pause", "stop":
		evs = []Event{Pause{}}

	case "set":
		if len(args) < 2 {
			fatalf("set requires a duration (e.g. 90, 3m, 1h30m)")
		}
		secs, err := parseSeconds(args[1])
		if err != nil {
			fatalf("%v", err)
		}
		evs = []Event{SetRemaining{Seconds: secs}}

	case "preset":
		if len(args) < 2 {
			fatalf("preset requires a name")
		}
		evs = []Event{ApplyPreset{Name: args[1]}}

	case "turn":
		if len(args) < 3 {
			fatalf("turn requires a ring and a number of steps")
		}
		ring, err := parseRing(args[1])
		if err != nil {
			fatalf("%v", err)
		}
		steps, err := strconv.Atoi(args[2])
		if err != nil {
			fatalf("invalid steps: %v", err)
		}
		evs = []Event{RotaryTurn{Ring: ring, Steps: steps}}

	case "drag":
		if len(args) < 4 {
			fatalf("drag requires a ring and at least two x,y points")
		}
		ring, err := parseRing(args[1])
		if err != nil {
			fatalf("%v", err)
		}
		pts := make([][2]float64, 0, len(args)-2)
		for _, a := range args[2:] {
			p, err := parsePoint(a)
			if err != nil {
				fatalf("%v", err)
			}
			pts = append(pts, p)
		}
		// Points are relative to the ring's center at the origin.
		evs = []Event{
			DialCenter{Ring: ring},
			DialDragStart{Ring: ring, X: pts[0][0], Y: pts[0][1]},
		}
		for _, p := range pts[1:] {
			evs = append(evs, DialDragTo{Ring: ring, X: p[0], Y: p[1]})
		}
		evs = append(evs, DialDragEnd{Ring: ring})

	case "status":
		evs = []Event{status{}}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	resp, err := send(socketPath, evs)
	if err != nil {
		fatalf("%v", err)
	}

	if resp.State != nil {
		s := resp.State
		fmt.Printf("%s %s (%ds", s.Time, s.State, s.RemainingSeconds)
		if s.TotalSeconds > 0 {
			fmt.Printf(" of %ds", s.TotalSeconds)
		}
		fmt.Println(")")
		return
	}
	fmt.Println("ok")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// parseSeconds accepts plain seconds or a Go duration of whole seconds.
func parseSeconds(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("invalid duration %q: must be whole seconds", s)
	}
	return int(d / time.Second), nil
}

func parseRing(s string) (string, error) {
	ring := strings.ToLower(s)
	switch ring {
	case "seconds", "minutes", "hours":
		return ring, nil
	}
	return "", fmt.Errorf("invalid ring %q (must be seconds, minutes or hours)", s)
}

// parsePoint parses "x,y".
func parsePoint(s string) ([2]float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return [2]float64{}, fmt.Errorf("invalid point %q (want x,y)", s)
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return [2]float64{x, y}, nil
}

// send writes each event on one connection and returns the last response.
func send(socketPath string, evs []Event) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	decoder := json.NewDecoder(conn)

	var response IPCResponse
	for _, ev := range evs {
		data, err := marshalEvent(ev)
		if err != nil {
			return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
		}

		// Line-delimited JSON
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return IPCResponse{}, fmt.Errorf("send event: %w", err)
		}

		response = IPCResponse{}
		if err := decoder.Decode(&response); err != nil {
			return IPCResponse{}, fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return response, fmt.Errorf("daemon error: %s", response.Error)
		}
	}
	return response, nil
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
	case status:
		env.Type = "status"
	case SetRemaining:
		env.Type = "set_remaining"
		payload = e
	case ApplyPreset:
		env.Type = "apply_preset"
		payload = e
	case RotaryTurn:
		env.Type = "rotary_turn"
		payload = e
	case DialCenter:
		env.Type = "dial_center"
		payload = e
	case DialDragStart:
		env.Type = "dial_drag_start"
		payload = e
	case DialDragTo:
		env.Type = "dial_drag_to"
		payload = e
	case DialDragEnd:
		env.Type = "dial_drag_end"
		payload = e
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

func printUsage() {
	fmt.Fprintf(os.Stderr, `dialtimer-ctl - Control the dialtimer daemon via IPC

Usage:
  dialtimer-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/dialtimer.sock)

Commands:
  toggle, t               Start the countdown, or pause it while running
  start                   Start the countdown
  pause, stop             Pause the countdown
  set <duration>          Set the remaining time (90, 3m, 1h30m)
  preset <name>           Set the remaining time from a configured preset
  turn <ring> <steps>     Turn a ring by detents (seconds, minutes, hours)
  drag <ring> <x,y>...     Drag a ring through points around its center
  status                  Print the current readout and run state
  help, -h, --help        Show this help message

Examples:
  dialtimer-ctl set 25m
  dialtimer-ctl turn hours 1
  dialtimer-ctl drag minutes 0,-10 10,0 0,10
  dialtimer-ctl -socket /run/dialtimer.sock toggle
`)
}
