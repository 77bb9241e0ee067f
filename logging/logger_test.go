package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*HauntLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestHauntLogger_KeyValues(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.WithComponent("engine").WithRun("run-1").Info("engine.round.start", "round", 3, "worker", "ghost_performer")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "engine.round.start", lines[0]["msg"])
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, float64(3), lines[0]["round"])
	assert.Equal(t, "ghost_performer", lines[0]["worker"])
}

func TestHauntLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.LogStateChange("hidden", nil, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestHauntLogger_DanglingValue(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.Info("odd", "key")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "key", lines[0]["!BADKEY"])
}

func TestHauntLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.LogStateChange("worker ghost_performer", map[string]any{"prop_battery": 100}, map[string]any{"prop_battery": 90})
	l.LogAction("sound_fx_operator", "trigger_sound_fx", false, map[string]any{"action": "scare_guest"})
	l.LogDecision("round_robin", "fog_machine_tech", "trigger_fog", time.Millisecond, errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "state.change", lines[0]["msg"])
	assert.Equal(t, float64(90), lines[0]["after"].(map[string]any)["prop_battery"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "selector.decision.failed", lines[2]["msg"])
	assert.Equal(t, "boom", lines[2]["error"])
}

func TestWithContext_DoesNotLeak(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("scenario", "haunted_house")
	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["scenario"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}
