package models

import (
	"errors"
	"fmt"
	"time"
)

type Window string

const (
	Window30d  Window = "30d"
	Window180d Window = "180d"
)

var ErrUnknownWindow = errors.New("unknown time window")

// Windows lists every window the batch runner computes, shortest first.
var Windows = []Window{Window30d, Window180d}

func ParseWindow(token string) (Window, error) {
	switch Window(token) {
	case Window30d, Window180d:
		return Window(token), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindow, token)
}

func (w Window) Days() int {
	if w == Window30d {
		return 30
	}
	return 180
}

// Cutoff returns the first calendar day (UTC midnight) included in the window ending at now.
func (w Window) Cutoff(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -w.Days())
}
