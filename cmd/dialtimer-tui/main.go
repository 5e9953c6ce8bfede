package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ============================================================================
// dialtimer-tui - terminal dial front-end
// ============================================================================
// Renders the daemon's three rings from the state websocket and sends
// drags, wheel turns and key presses back over IPC.
// ============================================================================

func main() {
	var (
		wsURL      = flag.String("ws", "ws://127.0.0.1:3002/state", "dialtimer state websocket URL")
		socketPath = flag.String("socket", "/tmp/dialtimer.sock", "dialtimer IPC socket path")
		themeName  = flag.String("theme", "default", "Color theme ("+strings.Join(ThemeNames(), ", ")+")")
	)
	flag.Parse()

	theme, ok := Themes[*themeName]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown theme %q\n", *themeName)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := newIPCSender(*socketPath)
	p := tea.NewProgram(NewModel(func(ev Event) { sender.Send(ev) }, theme), tea.WithAltScreen(), tea.WithMouseCellMotion())

	go sender.Run(ctx, func(err error) { p.Send(ipcErrMsg{Err: err}) })
	go subscribe(ctx, *wsURL, p.Send)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}
