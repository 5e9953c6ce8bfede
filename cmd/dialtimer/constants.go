package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_SPACE     = 57
	KEY_PLAYPAUSE = 164
	KEY_STOPCD    = 166
	KEY_PLAYCD    = 200
	KEY_PAUSECD   = 201

	// Rotary encoder relative axis codes
	REL_HWHEEL = 0x06
	REL_DIAL   = 0x07
	REL_WHEEL  = 0x08
	REL_MISC   = 0x09
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultUpdateHz   = 30 // Animation frame rate (Hz)
	maxUpdateHz       = 240
	defaultIPCSocket  = "/tmp/dialtimer.sock"
	defaultHTTPPort   = 3002
	defaultEventQueue = 64

	// Rotary encoder configuration defaults
	defaultRotaryVelocityWindowMS   = 200 // Time window for velocity detection (ms)
	defaultRotaryVelocityMultiplier = 5.0 // Multiplier for "fast spinning"
	defaultRotaryVelocityThreshold  = 4   // Detents in window to trigger velocity mode
)
