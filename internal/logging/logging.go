// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// EnvLogLevel overrides the profile's level.
const EnvLogLevel = "BORN_OPS_LOG_LEVEL"

// Profile selects logging defaults.
type Profile int

// Profiles.
const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime applies ProfileRuntime.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests applies ProfileTest.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the default logger for profile. Only the first call in
// a process has an effect.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level, timestamps := defaults(profile)
		if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		slog.SetDefault(New(os.Stderr, level, timestamps))
	})
}

func defaults(profile Profile) (slog.Level, bool) {
	switch profile {
	case ProfileTest:
		return slog.LevelDebug, false
	default:
		return slog.LevelInfo, true
	}
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level, timestamps bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if !timestamps {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level. It reports false for empty
// or unknown input. "off" and its synonyms silence everything below error+4.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "off", "disabled", "none":
		return slog.LevelError + 4, true
	default:
		return slog.LevelInfo, false
	}
}
