package logger_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/scry-engine/internal/config"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Setup changes the process default logger, so these tests are not parallel.
func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	tests := []struct {
		name       string
		level      string
		format     string
		debugShown bool
		jsonOutput bool
	}{
		{"debug json", "debug", "json", true, true},
		{"info hides debug", "INFO", "", false, true},
		{"invalid falls back to info", "verbose", "json", false, true},
		{"text format", "debug", "text", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &logger.TestLogBuffer{}
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tt.level, LogFormat: tt.format}, buf)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Same(t, l, slog.Default())

			l.Debug("debug message")
			l.Info("info message", slog.String("card_id", "abc"))

			out := buf.String()
			assert.Equal(t, tt.debugShown, strings.Contains(out, "debug message"))
			assert.Contains(t, out, "info message")
			if tt.jsonOutput {
				entries, err := buf.GetLogEntries()
				require.NoError(t, err)
				last := entries[len(entries)-1]
				assert.Equal(t, "abc", last["card_id"])
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := logger.ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := logger.ParseLevel("loud")
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()
	l, _ := logger.NewTestLogger(t)
	fallback, _ := logger.NewTestLogger(t)

	ctx := logger.WithLogger(context.Background(), l)
	assert.Same(t, l, logger.FromContext(ctx))
	assert.Same(t, l, logger.FromContextOrDefault(ctx, fallback))
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.NotNil(t, logger.FromContextOrDefault(context.Background(), nil))

	assert.Panics(t, func() {
		logger.WithLogger(context.Background(), nil)
	})
}
