package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const reconnectDelay = time.Second

// stateMsg carries a timer snapshot from the daemon's state stream.
type stateMsg struct {
	Init bool
	Data timerData
}

// connMsg reports that the state stream dropped.
type connMsg struct {
	Err error
}

// ipcErrMsg reports an event the daemon did not accept.
type ipcErrMsg struct {
	Err error
}

// subscribe follows the daemon's state websocket until ctx ends, reconnecting
// after failures. Every snapshot is delivered with send.
func subscribe(ctx context.Context, url string, send func(tea.Msg)) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	for {
		err := readStateStream(ctx, d, url, send)
		if ctx.Err() != nil {
			return
		}
		send(connMsg{Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func readStateStream(ctx context.Context, d websocket.Dialer, url string, send func(tea.Msg)) error {
	conn, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadJSON on shutdown.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var env stateEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		switch env.Type {
		case "timer_init", "timer_changed":
			send(stateMsg{Init: env.Type == "timer_init", Data: env.Data})
		}
	}
}

// ipcSender forwards events to the daemon over one long-lived IPC connection,
// in order. Drag moves, wheel turns and centers are dropped while the queue
// is full; events that end a gesture or change the run state wait up to
// blockTimeout for room.
type ipcSender struct {
	socketPath   string
	queue        chan Event
	blockTimeout time.Duration
}

func newIPCSender(socketPath string) *ipcSender {
	return &ipcSender{
		socketPath:   socketPath,
		queue:        make(chan Event, 256),
		blockTimeout: 500 * time.Millisecond,
	}
}

// mustDeliver reports whether losing ev would leave the daemon in the wrong
// state (a dial stuck dragging, a missed start or pause).
func mustDeliver(ev Event) bool {
	switch ev.(type) {
	case DialDragStart, DialDragEnd, Toggle, Start, Pause:
		return true
	}
	return false
}

// Send queues ev and reports whether it was queued.
func (s *ipcSender) Send(ev Event) bool {
	select {
	case s.queue <- ev:
		return true
	default:
	}
	if !mustDeliver(ev) {
		return false
	}

	t := time.NewTimer(s.blockTimeout)
	defer t.Stop()
	select {
	case s.queue <- ev:
		return true
	case <-t.C:
		return false
	}
}

// Run drains the queue until ctx ends. Failures are reported with onErr.
func (s *ipcSender) Run(ctx context.Context, onErr func(error)) {
	var conn net.Conn
	var dec *json.Decoder
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			if conn == nil {
				c, err := net.DialTimeout("unix", s.socketPath, time.Second)
				if err != nil {
					onErr(fmt.Errorf("connect to %s: %w", s.socketPath, err))
					continue
				}
				conn, dec = c, json.NewDecoder(c)
			}

			resp, err := roundTrip(conn, dec, ev)
			if err != nil {
				_ = conn.Close()
				conn, dec = nil, nil
				onErr(err)
				continue
			}
			if resp.Status == "error" {
				onErr(fmt.Errorf("daemon error: %s", resp.Error))
			}
		}
	}
}

func roundTrip(conn net.Conn, dec *json.Decoder, ev Event) (IPCResponse, error) {
	data, err := marshalEvent(ev)
	if err != nil {
		return IPCResponse{}, err
	}
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}
	var resp IPCResponse
	if err := dec.Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
