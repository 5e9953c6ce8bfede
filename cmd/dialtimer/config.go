package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the dialtimer daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config. The config file is the primary configuration surface;
// flags exist for small overrides.
type Config struct {
	Timer TimerConfig `yaml:"timer"`

	// Rotary encoder velocity policy
	Rotary RotaryFileConfig `yaml:"rotary"`

	// Linux evdev devices used as gesture sources
	Input []InputDeviceConfig `yaml:"input"`

	IPC IPCConfig `yaml:"ipc"`

	// HTTP server (state websocket + health)
	HTTP HTTPConfig `yaml:"http"`

	Logging LoggingConfig `yaml:"logging"`
}

type TimerConfig struct {
	// UpdateHz is the countdown animation frame rate.
	UpdateHz int `yaml:"update_hz"`

	// Presets maps names to countdown durations ("3m", "1h30m" or plain seconds).
	Presets map[string]PresetDuration `yaml:"presets,omitempty"`
}

type RotaryFileConfig struct {
	VelocityWindowMS   int     `yaml:"velocity_window_ms"`
	VelocityThreshold  int     `yaml:"velocity_threshold"`
	VelocityMultiplier float64 `yaml:"velocity_multiplier"`
}

// InputDeviceConfig binds an evdev device to the ring its knob turns.
type InputDeviceConfig struct {
	Path string `yaml:"path"`
	Ring string `yaml:"ring"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PresetDuration is a countdown length in whole seconds.
// In YAML it is either an integer number of seconds or a Go duration string.
type PresetDuration int

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PresetDuration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: preset must be a duration or a number of seconds", node.Line)
	}
	n, err := parsePresetDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = PresetDuration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p PresetDuration) MarshalYAML() (any, error) {
	return (time.Duration(p) * time.Second).String(), nil
}

func parsePresetDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid preset duration %q: %w", s, err)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("invalid preset duration %q: must be whole seconds", s)
	}
	return int(d / time.Second), nil
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Timer: TimerConfig{
			UpdateHz: defaultUpdateHz,
			Presets: map[string]PresetDuration{
				"tea":      3 * 60,
				"pomodoro": 25 * 60,
			},
		},
		Rotary: RotaryFileConfig{
			VelocityWindowMS:   defaultRotaryVelocityWindowMS,
			VelocityThreshold:  defaultRotaryVelocityThreshold,
			VelocityMultiplier: defaultRotaryVelocityMultiplier,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocket,
		},
		HTTP: HTTPConfig{
			Port: defaultHTTPPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
// A presets map in the file replaces the default presets entirely.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	// Decode presets separately so the file's map replaces the defaults
	// instead of merging into them.
	var peek struct {
		Timer struct {
			Presets *yaml.Node `yaml:"presets"`
		} `yaml:"timer"`
	}
	if err := yaml.Unmarshal(b, &peek); err == nil && peek.Timer.Presets != nil {
		cfg.Timer.Presets = nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var trailing yaml.Node
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err != nil {
			return Config{}, fmt.Errorf("decode config yaml: trailing content: %w", err)
		}
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
// Each override is applied only if its pointer is non-nil, even for zero values.
type FlagOverrides struct {
	UpdateHz *int

	// Input replaces the configured devices; each entry is "path" or "path:ring".
	Input []string

	RotaryVelocityWindowMS   *int
	RotaryVelocityThreshold  *int
	RotaryVelocityMultiplier *float64

	IPCSocketPath *string
	HTTPPort      *int

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	if o.UpdateHz != nil {
		cfg.Timer.UpdateHz = *o.UpdateHz
	}

	if len(o.Input) > 0 {
		devs := make([]InputDeviceConfig, 0, len(o.Input))
		for _, spec := range o.Input {
			dev, err := parseInputSpec(spec)
			if err != nil {
				return err
			}
			devs = append(devs, dev)
		}
		cfg.Input = devs
	}

	if o.RotaryVelocityWindowMS != nil {
		cfg.Rotary.VelocityWindowMS = *o.RotaryVelocityWindowMS
	}
	if o.RotaryVelocityThreshold != nil {
		cfg.Rotary.VelocityThreshold = *o.RotaryVelocityThreshold
	}
	if o.RotaryVelocityMultiplier != nil {
		cfg.Rotary.VelocityMultiplier = *o.RotaryVelocityMultiplier
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	return nil
}

// parseInputSpec parses "path" or "path:ring". The ring defaults to minutes.
func parseInputSpec(spec string) (InputDeviceConfig, error) {
	path, ring := spec, RingMinutes.String()
	if i := strings.LastIndexByte(spec, ':'); i >= 0 {
		path, ring = spec[:i], spec[i+1:]
	}
	if path == "" {
		return InputDeviceConfig{}, fmt.Errorf("input %q: empty device path", spec)
	}
	if _, err := ParseRing(ring); err != nil {
		return InputDeviceConfig{}, fmt.Errorf("input %q: %w", spec, err)
	}
	return InputDeviceConfig{Path: path, Ring: ring}, nil
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if c.Timer.UpdateHz <= 0 || c.Timer.UpdateHz > maxUpdateHz {
		return fmt.Errorf("timer.update_hz must be between 1 and %d", maxUpdateHz)
	}
	for name, secs := range c.Timer.Presets {
		if name == "" {
			return errors.New("timer.presets: empty preset name")
		}
		if secs < 0 || int(secs) > maxCountdownSeconds {
			return fmt.Errorf("timer.presets.%s must be between 0s and %ds", name, maxCountdownSeconds)
		}
	}

	if c.Rotary.VelocityWindowMS <= 0 {
		return errors.New("rotary.velocity_window_ms must be > 0")
	}
	if c.Rotary.VelocityThreshold <= 0 {
		return errors.New("rotary.velocity_threshold must be > 0")
	}
	if c.Rotary.VelocityMultiplier < 1 {
		return errors.New("rotary.velocity_multiplier must be >= 1")
	}

	for i, dev := range c.Input {
		if dev.Path == "" {
			return fmt.Errorf("input[%d].path is empty", i)
		}
		if _, err := ParseRing(dev.Ring); err != nil {
			return fmt.Errorf("input[%d].ring: %w", i, err)
		}
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535 (0 disables)")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToReducerConfig converts the file config into the reducer's static policy.
func (c *Config) ToReducerConfig() ReducerConfig {
	presets := make(map[string]int, len(c.Timer.Presets))
	for name, secs := range c.Timer.Presets {
		presets[name] = int(secs)
	}
	return ReducerConfig{
		Rotary: RotaryConfig{
			VelocityWindowMS:   c.Rotary.VelocityWindowMS,
			VelocityThreshold:  c.Rotary.VelocityThreshold,
			VelocityMultiplier: c.Rotary.VelocityMultiplier,
		},
		Presets: presets,
	}
}

// InputBindings resolves the configured devices. Validate must have passed.
func (c *Config) InputBindings() []InputBinding {
	out := make([]InputBinding, 0, len(c.Input))
	for _, dev := range c.Input {
		ring, _ := ParseRing(dev.Ring)
		out = append(out, InputBinding{Path: ExpandPath(dev.Path), Ring: ring})
	}
	return out
}

// PresetNames returns the configured preset names, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Timer.Presets))
	for name := range c.Timer.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
