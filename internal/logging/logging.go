// Package logging constructs the service-wide structured logger. Components
// receive a *slog.Logger from main; nothing in the tree logs through a global.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a slog.Logger writing to stderr in the given format
// ("json" or "text"; anything else falls back to text).
func New(format string) *slog.Logger {
	return NewWithWriter(format, os.Stderr)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}
