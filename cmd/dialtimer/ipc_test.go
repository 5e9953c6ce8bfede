package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeDaemon answers snapshot requests and records everything else.
func fakeDaemon(ctx context.Context, events <-chan Event, snap StateSnapshot, got chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if req, ok := ev.(RequestStateSnapshot); ok {
				req.Reply <- snap
				continue
			}
			got <- ev
		}
	}
}

func ipcExchange(t *testing.T, w *bufio.Writer, r *bufio.Reader, line string) IPCResponse {
	t.Helper()
	if _, err := w.WriteString(line + "\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	raw, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp IPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return resp
}

func TestHandleIPCConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	got := make(chan Event, 4)
	go fakeDaemon(ctx, events, StateSnapshot{State: Paused, Time: "00:03:00", RemainingSeconds: 180}, got)

	server, client := net.Pipe()
	defer client.Close()
	go handleIPCConnection(ctx, server, events, discardLogger())

	w := bufio.NewWriter(client)
	r := bufio.NewReader(client)

	resp := ipcExchange(t, w, r, `{"type":"set_remaining","data":{"seconds":180}}`)
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	select {
	case ev := <-got:
		if ev != (SetRemaining{Seconds: 180}) {
			t.Fatalf("expected SetRemaining{180}, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event was not forwarded")
	}

	resp = ipcExchange(t, w, r, `{"type":"warp"}`)
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("expected an error response, got %+v", resp)
	}

	resp = ipcExchange(t, w, r, `{"type":"status"}`)
	if resp.Status != "ok" || resp.State == nil {
		t.Fatalf("expected a state in the status response, got %+v", resp)
	}
	if resp.State.Time != "00:03:00" || resp.State.RemainingSeconds != 180 {
		t.Fatalf("unexpected state: %+v", *resp.State)
	}
}

func TestHandleIPCConnection_QueueFull(t *testing.T) {
	events := make(chan Event) // nobody reads

	server, client := net.Pipe()
	defer client.Close()
	go handleIPCConnection(context.Background(), server, events, discardLogger())

	resp := ipcExchange(t, bufio.NewWriter(client), bufio.NewReader(client), `{"type":"toggle"}`)
	if resp.Status != "error" || resp.Error != "event queue full" {
		t.Fatalf("expected queue full error, got %+v", resp)
	}
}

func TestIPCServer_ClientRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "dt")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "ipc.sock")

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 4)
	got := make(chan Event, 4)
	go fakeDaemon(ctx, events, StateSnapshot{State: Running, Time: "00:00:42"}, got)

	serverErr := make(chan error, 1)
	go func() { serverErr <- runIPCServer(ctx, socket, events, discardLogger()) }()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, "socket was not created")

	if err := SendIPCEvent(socket, ApplyPreset{Name: "tea"}); err != nil {
		t.Fatalf("SendIPCEvent: %v", err)
	}
	if ev := <-got; ev != (ApplyPreset{Name: "tea"}) {
		t.Fatalf("expected ApplyPreset{tea}, got %#v", ev)
	}

	snap, err := QueryIPCStatus(socket)
	if err != nil {
		t.Fatalf("QueryIPCStatus: %v", err)
	}
	if snap.State != Running || snap.Time != "00:00:42" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	cancel()
	select {
	case err := <-serverErr:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("IPC server did not stop")
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, stat err=%v", err)
	}
}

func TestSendIPCEvent_NoDaemon(t *testing.T) {
	if err := SendIPCEvent(filepath.Join(t.TempDir(), "absent.sock"), Toggle{}); err == nil {
		t.Fatalf("expected a connect error")
	}
}
