package testutil

import (
	"io"
	"log/slog"
)

// NewLogger returns a logger that discards everything. Tests asserting on
// log output should install their own handler instead.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
