//go:build !linux

package main

import (
	"context"
	"errors"
	"os"
)

func readInputEventsEpoll(_ context.Context, _ []*os.File, _ chan<- deviceEvent, readErr chan<- error) {
	readErr <- errors.New("evdev input is only supported on linux")
}
