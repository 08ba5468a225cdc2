package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedLogger(t *testing.T, config *Config) (*Logger, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	config.writer = output

	logger, err := New(config)
	require.NoError(t, err)
	require.NotNil(t, logger)

	return logger, output
}

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNew_JSONFormat(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:  "debug",
		Format: "json",
	})

	logger.Debug("slot claimed", slog.String("job_id", "j1"))

	entry := decodeLine(t, output.String())
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "slot claimed", entry["msg"])
	assert.Equal(t, "j1", entry["job_id"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level string
		log   func(l *Logger)
		want  string
	}{
		{
			name:  "info suppresses debug",
			level: "info",
			log: func(l *Logger) {
				l.Debug("dropped")
				l.Info("kept")
			},
			want: "kept",
		},
		{
			name:  "warn suppresses info",
			level: "warn",
			log: func(l *Logger) {
				l.Info("dropped")
				l.Warn("kept")
			},
			want: "kept",
		},
		{
			name:  "error suppresses warn",
			level: "error",
			log: func(l *Logger) {
				l.Warn("dropped")
				l.Error("kept")
			},
			want: "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, output := newCapturedLogger(t, &Config{
				Level:  tt.level,
				Format: "json",
			})

			tt.log(logger)

			lines := strings.Split(strings.TrimSpace(output.String()), "\n")
			require.Len(t, lines, 1)
			assert.Equal(t, tt.want, decodeLine(t, lines[0])["msg"])
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
	})

	logger.Info("payment linked")

	// tint abbreviates the level to INF
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "payment linked")
}

func TestNew_SourceLocation(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:        "info",
		Format:       "json",
		EnableSource: true,
	})

	logger.Info("with source")

	entry := decodeLine(t, output.String())
	require.Contains(t, entry, "source")
	source := entry["source"].(map[string]interface{})
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warn", expected: slog.LevelWarn},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "DEBUG", expected: slog.LevelInfo}, // case-sensitive, falls back
		{level: "invalid", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_WithGroup(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:  "info",
		Format: "json",
	})

	logger.WithGroup("escrow").Info("funded", slog.String("payment_id", "p1"))

	entry := decodeLine(t, output.String())
	require.Contains(t, entry, "escrow")
	group := entry["escrow"].(map[string]interface{})
	assert.Equal(t, "p1", group["payment_id"])
}

func TestLogger_WithAttrs(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:  "info",
		Format: "json",
	})

	logger.WithAttrs(
		slog.String("request_id", "r-42"),
		slog.String("contract_id", "c-7"),
	).Info("done")

	entry := decodeLine(t, output.String())
	assert.Equal(t, "r-42", entry["request_id"])
	assert.Equal(t, "c-7", entry["contract_id"])
	assert.Equal(t, "done", entry["msg"])
}

func TestLogger_With(t *testing.T) {
	logger, output := newCapturedLogger(t, &Config{
		Level:  "info",
		Format: "json",
	})

	logger.With(
		slog.String("service", "api"),
		slog.Int("attempt", 2),
	).Info("operation complete")

	entry := decodeLine(t, output.String())
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, float64(2), entry["attempt"])
}
