package models

import (
	"fmt"
	"time"
)

// AttemptState is the fixed-window counter for one (action, identifier) key.
// Created lazily on the first attempt; reset when the window elapses.
type AttemptState struct {
	Action      string
	Identifier  string
	Count       int
	WindowStart time.Time
}

// Result reports the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Key builds the canonical store key for an (action, identifier) pair.
func Key(action, identifier string) string {
	return fmt.Sprintf("%s:%s", action, identifier)
}
