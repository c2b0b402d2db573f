package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithLevel(WarnLevel),
		WithOutput(&buf),
		WithFormatter(&TextFormatter{DisableColors: true}),
	)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithFormatter(&JSONFormatter{}),
	)

	child := logger.WithComponent("dispatcher").With(Str("rollup", "orbit-1"))
	child.Info("job admitted", Int("job_id", 2))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "job admitted", entry["message"])
	assert.Equal(t, "dispatcher", entry[ComponentKey])
	assert.Equal(t, "orbit-1", entry["rollup"])
	assert.Equal(t, float64(2), entry["job_id"])
}

func TestChildLoggerDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithFormatter(&TextFormatter{DisableColors: true}),
	)

	_ = logger.With(Str("child", "only"))
	logger.Info("parent entry")

	assert.NotContains(t, buf.String(), "child=only")
}
