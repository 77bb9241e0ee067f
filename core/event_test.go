package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundEvent(t *testing.T) {
	ev := NewRoundEvent("run-1", 4, "fog_machine_tech", "trigger_fog")
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, 4, ev.Round)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, "UTC", ev.Timestamp.Location().String())
	assert.True(t, ev.Succeeded())

	ev.Outcome = Failed("fog machine jammed")
	assert.False(t, ev.Succeeded())
	assert.NotEqual(t, ev.ID, NewRoundEvent("run-1", 4, "fog_machine_tech", "trigger_fog").ID)
}

func TestRoundEvent_JSON(t *testing.T) {
	ev := NewRoundEvent("run-1", 1, "ghost_performer", "move_ghost")
	ev.Outcome = Done("Ghost moved to attic!", Payload{Action: ActionMoveGhost, Location: String("attic")})

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "ghost_performer", m["worker"])

	outcome := m["outcome"].(map[string]any)
	assert.Equal(t, "done", outcome["status"])
	assert.Equal(t, "attic", outcome["payload"].(map[string]any)["location"])
}

func TestContent(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "The fog "},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "fog_machine_tech__trigger_fog", Arguments: "{}"}},
		TextPart{Text: "rolls in."},
	}}

	assert.Equal(t, "The fog rolls in.", c.Text())
	calls := c.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "fog_machine_tech__trigger_fog", calls[0].Name)

	assert.Equal(t, "hello", NewTextContent("user", "hello").Text())
}
