package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*ModelMeshLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf})
	return l, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogModelCall(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l = l.WithComponent("stream").WithCall("run-1", "call-1")

	l.LogModelCall("stream-text", "gpt-4o-mini", 2, 15*time.Millisecond, "success", nil)
	l.LogModelCall("stream-text", "gpt-4o-mini", 1, time.Millisecond, "failure", errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "Model call completed", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "stream", lines[0]["component"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, "call-1", lines[0]["call_id"])
	assert.EqualValues(t, 2, lines[0]["tries"])

	assert.Equal(t, "Model call failed", lines[1]["msg"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.LogModelCall("stream-text", "m", 1, time.Millisecond, "success", nil)
	l.Warn("shown", "n", 1)
	l.LogRetry(1, time.Second, errors.New("rate limited"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.EqualValues(t, 1, lines[0]["n"])
	assert.Equal(t, "Retrying model call", lines[1]["msg"])
}

func TestWithContextDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	child := l.WithContext("provider", "openai")

	l.Info("parent")
	child.Info("child")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "provider")
	assert.Equal(t, "openai", lines[1]["provider"])
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"Debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"Warn":    LogLevelWarn,
		"warning": LogLevelWarn,
		" Error ": LogLevelError,
		"error":   LogLevelError,
		"bogus":   LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
		assert.NotEqual(t, "UNKNOWN", want.String())
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}

func TestNewDefaultSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	NewDefaultSlogLogger().Info("hello", "k", "v")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "v", lines[0]["k"])
}
