package main

import (
	"fmt"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// In this codebase, those are animation driver requests and snapshot replies.
type Command interface {
	commandMarker()
	String() string
}

// CmdStartAnimation asks the AnimationDriver to interpolate the master angle
// from From to To over Duration. Frames are tagged with Token.
type CmdStartAnimation struct {
	Token    uint64
	From     float64
	To       float64
	Duration time.Duration
}

func (CmdStartAnimation) commandMarker() {}
func (c CmdStartAnimation) String() string {
	return fmt.Sprintf("CmdStartAnimation(token=%d, from=%.3f, to=%.3f, duration=%s)", c.Token, c.From, c.To, c.Duration)
}

// CmdCancelAnimation cancels the animation identified by Token.
type CmdCancelAnimation struct {
	Token uint64
}

func (CmdCancelAnimation) commandMarker() {}
func (c CmdCancelAnimation) String() string {
	return fmt.Sprintf("CmdCancelAnimation(token=%d)", c.Token)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
