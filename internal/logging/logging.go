// Package logging builds the zerolog loggers used across the application.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// New returns a timestamped logger writing to w at the named level. With
// console set, output is human-readable instead of JSON. Unknown level names
// fall back to info.
func New(w io.Writer, level string, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewStderr returns a logger writing to standard error.
func NewStderr(level string, console bool) zerolog.Logger {
	return New(os.Stderr, level, console)
}

// ParseLevel converts a level name such as "debug" or "WARN" to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// For returns a child logger tagged with the component name.
func For(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
