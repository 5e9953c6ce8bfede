package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// deviceEvent is an inputEvent tagged with the index of the device it came from.
type deviceEvent struct {
	Device int
	Ev     inputEvent
}

// InputBinding is an evdev device whose knob turns a ring.
type InputBinding struct {
	Path string
	Ring Ring
}

// translateInputEvent maps a raw evdev event to a reducer Event.
//
// Relative axis movement (rotary knobs, scroll wheels) turns the bound ring;
// media keys drive the run state. Only key presses count, not repeats.
func translateInputEvent(ev inputEvent, ring Ring) (Event, bool) {
	switch ev.Type {
	case EV_REL:
		switch ev.Code {
		case REL_DIAL, REL_WHEEL, REL_HWHEEL, REL_MISC:
			if ev.Value == 0 {
				return nil, false
			}
			return RotaryTurn{Ring: ring, Steps: int(ev.Value)}, true
		}

	case EV_KEY:
		if ev.Value != evValuePress {
			return nil, false
		}
		switch ev.Code {
		case KEY_PLAYPAUSE, KEY_SPACE:
			return Toggle{}, true
		case KEY_PLAYCD:
			return Start{}, true
		case KEY_STOPCD, KEY_PAUSECD:
			return Pause{}, true
		}
	}
	return nil, false
}

// runInput reads every bound device and forwards translated events until ctx
// is canceled or a device fails. With no bindings it returns immediately.
func runInput(ctx context.Context, bindings []InputBinding, events chan<- Event, logger *slog.Logger) error {
	if len(bindings) == 0 {
		logger.Debug("no input devices configured")
		return nil
	}

	files := make([]*os.File, 0, len(bindings))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, b := range bindings {
		f, err := os.Open(b.Path)
		if err != nil {
			return fmt.Errorf("open input device %s (run as root or add user to 'input' group): %w", b.Path, err)
		}
		files = append(files, f)
		logger.Info("input device opened", "device", b.Path, "ring", b.Ring)
	}

	raw := make(chan deviceEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(ctx, files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case de := <-raw:
			ev, ok := translateInputEvent(de.Ev, bindings[de.Device].Ring)
			if !ok {
				continue
			}
			logger.Debug("input event", "device", bindings[de.Device].Path, "event", fmt.Sprintf("%T", ev))
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
