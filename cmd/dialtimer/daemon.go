package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects.
//   - Animation frames are turned into Events and fed back into the reducer.
//   - This goroutine is the single mutator of DaemonState.
//
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from the gesture sources (IPC, evdev, HTTP)
//   - Receives AnimationFrame events from the effects layer
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and publishes broadcasts
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	fx *effectRunner,
	cfg ReducerConfig,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		state = NewDaemonState()
	}
	defer fx.Close()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bcs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcs {
			select {
			case broadcasts <- b:
				continue
			default:
			}
			// Frame updates may be dropped under pressure; run-state
			// transitions may not.
			if bc, ok := b.(BroadcastTimerChanged); ok && bc.RunStateChanged {
				select {
				case broadcasts <- b:
				case <-ctx.Done():
				}
				continue
			}
			logger.Debug("broadcast queue full, dropping update")
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			if len(rr.Commands) > 0 {
				cmdQueue = append(cmdQueue, rr.Commands...)
			}
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			fx.run(cmd, enqueueEvent)

			// Observations are reduced promptly to keep state coherent.
			flushEvents()
		}
	}

	logger.Debug("daemon started", "state", state.Timer.Run, "time", state.Timer.Display)

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			prev := state.Timer.Run
			enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()
			if state.Timer.Run != prev {
				logger.Info("timer state changed", "from", prev, "to", state.Timer.Run, "time", state.Timer.Display)
			}

		case ev := <-fx.Frames():
			prev := state.Timer.Run
			enqueueEvent(ev)
			flushEvents()
			flushCommands()
			if prev == Running && state.Timer.Run == Idle {
				logger.Info("countdown finished")
			}
		}
	}
}
