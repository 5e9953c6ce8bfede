package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// timerMessage is the dialtimer state websocket envelope.
type timerMessage struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data struct {
		State            string  `json:"state"`
		MasterAngle      float64 `json:"master_angle"`
		Time             string  `json:"time"`
		RemainingSeconds int     `json:"remaining_s"`
		TotalSeconds     int     `json:"total_s"`
		Angles           struct {
			Seconds float64 `json:"seconds"`
			Minutes float64 `json:"minutes"`
			Hours   float64 `json:"hours"`
		} `json:"angles"`
	} `json:"data"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/state", "dialtimer state websocket URL")
		raw   = flag.Bool("raw", false, "Print messages as received (pretty JSON)")
		all   = flag.Bool("all", false, "Print every message, not only readout or state changes")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer and keep the deadline moving.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var lastTime, lastState string
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				printPretty(message)
				continue
			}
			handleTextMessage(message, *all, &lastTime, &lastState)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints timer messages, skipping frames that only moved the rings.
func handleTextMessage(message []byte, all bool, lastTime, lastState *string) {
	var msg timerMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type == "" {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	d := msg.Data
	changed := d.Time != *lastTime || d.State != *lastState
	*lastTime, *lastState = d.Time, d.State
	if !all && !changed && msg.Type != "timer_init" {
		return
	}

	ts := time.Now()
	if msg.Ts != nil {
		ts = msg.Ts.Local()
	}
	fmt.Printf("[%s] %-13s %s %-7s  remaining=%ds total=%ds  rings s=%.1f m=%.1f h=%.2f\n",
		ts.Format("15:04:05.000"), msg.Type, d.Time, d.State,
		d.RemainingSeconds, d.TotalSeconds,
		d.Angles.Seconds, d.Angles.Minutes, d.Angles.Hours)
}

func printPretty(message []byte) {
	var jsonData map[string]any
	if err := json.Unmarshal(message, &jsonData); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}
	prettyJSON, _ := json.MarshalIndent(jsonData, "", "  ")
	fmt.Printf("%s\n", string(prettyJSON))
}
