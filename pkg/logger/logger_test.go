package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := build(Config{Level: "info"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Debug("dropped")
	l.Info("claim applied", zap.String("user_id", "5060715466"), zap.Int64("reward", 42))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "claim applied", entry["message"])
	assert.Equal(t, "yafs-miniapp", entry["service"])
	assert.Equal(t, "5060715466", entry["user_id"])
	assert.EqualValues(t, 42, entry["reward"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestBuild_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := build(Config{Level: "warn", Format: FormatConsole}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("store degraded")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "store degraded")
	assert.NotContains(t, out, "dropped")
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := build(Config{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)

	_, err = build(Config{Level: "info", Format: "xml"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.EqualError(t, err, `unknown log format "xml"`)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := build(Config{Level: "info"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Debug("hidden")
	require.NoError(t, SetLevel("debug"))
	l.Debug("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")

	assert.Error(t, SetLevel("verbose"))
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestLogger_DefaultsToNop(t *testing.T) {
	assert.NotNil(t, Logger())
	assert.NotPanics(t, func() { Logger().Info("before initialize") })
}
