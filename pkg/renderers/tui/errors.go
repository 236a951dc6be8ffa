package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoEngine is returned when Run is called without a form engine.
	ErrNoEngine = errors.New("tui: form engine is nil")
)
