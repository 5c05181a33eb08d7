package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" INFO ", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"off", slog.LevelError + 4, true},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, false)

	log.Info("hidden")
	log.Warn("overriding kernel", "op", "born::nonzero")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "time=")
	assert.Contains(t, out, `msg="overriding kernel" op=born::nonzero`)
}

func TestDefaults(t *testing.T) {
	level, timestamps := defaults(ProfileRuntime)
	assert.Equal(t, slog.LevelInfo, level)
	assert.True(t, timestamps)

	level, timestamps = defaults(ProfileTest)
	assert.Equal(t, slog.LevelDebug, level)
	assert.False(t, timestamps)
}

func TestConfigureTests(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	ConfigureTests()
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	// Later calls keep the first configuration.
	ConfigureRuntime()
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}
