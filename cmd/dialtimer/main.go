package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("dialtimer v%s\n", version)
	fmt.Println("Three-ring rotary countdown timer daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  dialtimer [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Keeps a countdown set by dragging or turning three concentric rings")
	fmt.Println("  (seconds, minutes, hours). Gestures arrive over a Unix socket and from")
	fmt.Println("  Linux input devices; state is published on a websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional)")
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Countdown animation frame rate, 1..%d (default %d)\n", maxUpdateHz, defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -input path[:ring]")
	fmt.Println("        Linux input device whose knob turns a ring (repeatable, ring defaults to minutes)")
	fmt.Println()
	fmt.Println("  -rotary-velocity-window-ms int")
	fmt.Printf("        Time window for fast-spin detection in ms (default %d)\n", defaultRotaryVelocityWindowMS)
	fmt.Println()
	fmt.Println("  -rotary-velocity-threshold int")
	fmt.Printf("        Detents within the window that count as fast spinning (default %d)\n", defaultRotaryVelocityThreshold)
	fmt.Println()
	fmt.Println("  -rotary-velocity-multiplier float")
	fmt.Printf("        Step multiplier while fast spinning (default %.1f)\n", defaultRotaryVelocityMultiplier)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Printf("        HTTP port for /state websocket and /healthz, 0 disables (default %d)\n", defaultHTTPPort)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with defaults")
	fmt.Println("  dialtimer")
	fmt.Println()
	fmt.Println("  # Two knobs: one for minutes, one for hours")
	fmt.Println("  dialtimer -input /dev/input/event4:minutes -input /dev/input/event5:hours")
	fmt.Println()
	fmt.Println("  # Drive it from a shell")
	fmt.Println("  dialtimer-ctl preset tea && dialtimer-ctl start")
	fmt.Println()
}

// stringsFlag collects a repeatable string flag.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		updateHz = flag.Int("update-hz", defaultUpdateHz, "Countdown animation frame rate")

		rotaryWindowMS   = flag.Int("rotary-velocity-window-ms", defaultRotaryVelocityWindowMS, "Time window for fast-spin detection in ms")
		rotaryThreshold  = flag.Int("rotary-velocity-threshold", defaultRotaryVelocityThreshold, "Detents within the window that count as fast spinning")
		rotaryMultiplier = flag.Float64("rotary-velocity-multiplier", defaultRotaryVelocityMultiplier, "Step multiplier while fast spinning")

		ipcSocketPath = flag.String("ipc-socket", defaultIPCSocket, "Unix domain socket path for IPC")
		httpPort      = flag.Int("http-port", defaultHTTPPort, "HTTP port for /state and /healthz (0 disables)")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
	)
	var inputs stringsFlag
	flag.Var(&inputs, "input", "Linux input device as path[:ring] (repeatable)")

	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags the user actually set override the file.
	overrides := FlagOverrides{Input: inputs}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "update-hz":
			overrides.UpdateHz = updateHz
		case "rotary-velocity-window-ms":
			overrides.RotaryVelocityWindowMS = rotaryWindowMS
		case "rotary-velocity-threshold":
			overrides.RotaryVelocityThreshold = rotaryThreshold
		case "rotary-velocity-multiplier":
			overrides.RotaryVelocityMultiplier = rotaryMultiplier
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "http-port":
			overrides.HTTPPort = httpPort
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	if err := overrides.Apply(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, logLevel)

	logger.Debug("starting dialtimer", "version", version)
	logger.Debug("configuration",
		"config", *configPath,
		"update_hz", cfg.Timer.UpdateHz,
		"presets", strings.Join(cfg.PresetNames(), ","),
		"rotary_velocity_window_ms", cfg.Rotary.VelocityWindowMS,
		"rotary_velocity_threshold", cfg.Rotary.VelocityThreshold,
		"rotary_velocity_multiplier", cfg.Rotary.VelocityMultiplier,
		"inputs", len(cfg.Input),
		"ipc_socket", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dialtimer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run wires every component and blocks until ctx is canceled or one of them fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	// Central event bus: every gesture source feeds the daemon loop.
	events := make(chan Event, defaultEventQueue)
	broadcasts := make(chan StateBroadcast, 256)

	fx := newEffectRunner(ctx, NewLinearDriver(cfg.Timer.UpdateHz), logger)
	g.Go(func() error {
		runDaemon(ctx, events, fx, cfg.ToReducerConfig(), NewDaemonState(), broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
	})

	g.Go(func() error {
		return runInput(ctx, cfg.InputBindings(), events, logger)
	})

	if cfg.HTTP.Port > 0 {
		ws := NewServer(logger, events, ServerConfig{})
		g.Go(func() error {
			ws.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(ctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.HTTP.Port, newHTTPMux(ws, time.Now()), logger)
		})
	} else {
		// Nobody subscribes; keep the daemon from blocking on urgent broadcasts.
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-broadcasts:
				}
			}
		})
	}

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"inputs", len(cfg.Input),
		"update_rate_hz", cfg.Timer.UpdateHz)

	return g.Wait()
}
