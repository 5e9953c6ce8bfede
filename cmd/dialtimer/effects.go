package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// effectRunner executes reducer-emitted Commands (side effects) and reports
// observations back as Events.
//
// Design rules:
//   - It is allowed to start goroutines and block on channels; the reducer is not.
//   - It must never call Reduce() directly; animation frames are delivered on
//     the frames channel and reduced by the daemon loop.
//   - At most one animation runs at a time. Starting a new one cancels the old.
//
// run is called only from the daemon goroutine.
type effectRunner struct {
	ctx    context.Context
	driver AnimationDriver
	logger *slog.Logger

	frames chan Event

	currentToken  uint64
	currentCancel context.CancelFunc

	wg sync.WaitGroup
}

func newEffectRunner(ctx context.Context, driver AnimationDriver, logger *slog.Logger) *effectRunner {
	return &effectRunner{
		ctx:    ctx,
		driver: driver,
		logger: logger,
		frames: make(chan Event, defaultEventQueue),
	}
}

// Frames is the stream of animation observations for the daemon loop.
func (fx *effectRunner) Frames() <-chan Event { return fx.frames }

// run executes a single Command and emits synchronous observations via onEvent.
func (fx *effectRunner) run(cmd Command, onEvent func(Event)) {
	if onEvent == nil {
		// No place to report observations/errors; nothing sensible to do.
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdStartAnimation:
		if fx.driver == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoDriver{}, At: now})
			return
		}
		fx.cancelCurrent()

		ctx, cancel := context.WithCancel(fx.ctx)
		fx.currentToken = c.Token
		fx.currentCancel = cancel

		spec := AnimationSpec{Token: c.Token, From: c.From, To: c.To, Duration: c.Duration}
		fx.logger.Debug("animation starting", "token", c.Token, "from", c.From, "duration", c.Duration)

		fx.wg.Add(1)
		go func() {
			defer fx.wg.Done()
			fx.driver.Animate(ctx, spec, func(f AnimationFrame) {
				// A canceled animation's frames are stale; don't block on them.
				select {
				case fx.frames <- f:
				case <-ctx.Done():
				}
			})
		}()

	case CmdCancelAnimation:
		if fx.currentCancel != nil && fx.currentToken == c.Token {
			fx.logger.Debug("animation canceled", "token", c.Token)
			fx.cancelCurrent()
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		if c.Reply == nil {
			fx.logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop.
		select {
		case c.Reply <- c.Snapshot:
		default:
			fx.logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		fx.logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

func (fx *effectRunner) cancelCurrent() {
	if fx.currentCancel != nil {
		fx.currentCancel()
	}
	fx.currentCancel = nil
	fx.currentToken = 0
}

// Close cancels any running animation and waits for its goroutine.
func (fx *effectRunner) Close() {
	fx.cancelCurrent()
	fx.wg.Wait()
}

// errNoDriver indicates an animation was requested without an AnimationDriver.
type errNoDriver struct{}

func (errNoDriver) Error() string { return "no animation driver" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
