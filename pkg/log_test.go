package pkg

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withLogger swaps the default logger for the duration of a test.
func withLogger(t *testing.T, l *slog.Logger) {
	t.Helper()
	original := DefaultLogger
	level := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(original)
		SetLogLevel(level)
	})
	SetLogger(l)
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			assert.Equal(t, tt.level, GetLogLevel())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	require.NotNil(t, logger)

	logger.Error("test message")
	assert.Contains(t, buf.String(), `"msg":"test message"`)
}

func TestLogComponents(t *testing.T) {
	var buf bytes.Buffer
	withLogger(t, NewLogger(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	LogDebug(ComponentPort, "debug message", "key", "value")
	LogInfo(ComponentEnum, "info message")
	LogWarn(ComponentController, "warn message")
	LogError(ComponentTransfer, "error message")

	out := buf.String()
	assert.Contains(t, out, "debug message")
	assert.Contains(t, out, "component=port")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "component=enum")
	assert.Contains(t, out, "component=controller")
	assert.Contains(t, out, "component=transfer")
}

func TestLogTrace(t *testing.T) {
	var buf bytes.Buffer

	t.Run("suppressed above trace", func(t *testing.T) {
		withLogger(t, NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		LogTrace(ComponentChannel, "hcchar write")
		assert.Empty(t, buf.String())
	})

	t.Run("emitted at trace", func(t *testing.T) {
		buf.Reset()
		withLogger(t, NewLogger(&buf, &slog.HandlerOptions{Level: LevelTrace}))
		LogTrace(ComponentChannel, "hcchar write", "value", 0x8000)
		assert.Contains(t, buf.String(), "hcchar write")
		assert.Contains(t, buf.String(), "component=channel")
	})
}

func TestSetLogOutput(t *testing.T) {
	var buf bytes.Buffer
	withLogger(t, DefaultLogger)

	SetLogLevel(slog.LevelInfo)
	SetLogOutput(&buf, LogFormatJSON)
	LogInfo(ComponentHID, "report")
	assert.Contains(t, buf.String(), `"component":"hid"`)
}
