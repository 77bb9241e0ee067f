package selector

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/hauntedhouse"
	"github.com/hupe1980/hauntmesh/logging"
	"github.com/hupe1980/hauntmesh/model"
	"github.com/hupe1980/hauntmesh/scenario"
)

func situation(t *testing.T, round int, last core.WorkerID) engine.Situation {
	t.Helper()

	sc := scenario.Default()
	agent, err := hauntedhouse.NewAgent(sc)
	require.NoError(t, err)

	return engine.Situation{
		Round:       round,
		AgentName:   agent.Name,
		Goal:        agent.Goal,
		Description: agent.Description,
		Workers:     agent.Workers,
		State:       sc.InitialState(),
		LastWorker:  last,
	}
}

func TestRoundRobin_CyclesWithoutRepeats(t *testing.T) {
	rr := NewRoundRobin(func(o *RoundRobinOptions) { o.Values = hauntedhouse.ArgumentPool() })
	ctx := context.Background()

	var (
		last  core.WorkerID
		order []core.WorkerID
		args  []map[string]any
	)
	for round := 1; round <= 6; round++ {
		d, err := rr.Select(ctx, situation(t, round, last))
		require.NoError(t, err)
		assert.NotEqual(t, last, d.Worker, "round %d repeated a worker", round)
		last = d.Worker
		order = append(order, d.Worker)
		args = append(args, d.Args)
	}

	assert.Equal(t, []core.WorkerID{
		"ghost_performer", "sound_fx_operator", "fog_machine_tech",
		"ghost_performer", "sound_fx_operator", "fog_machine_tech",
	}, order)
	assert.Equal(t, map[string]any{"location": "attic"}, args[0])
	assert.Equal(t, map[string]any{"effect": "chains"}, args[1])
	assert.Empty(t, args[2])
	assert.Equal(t, map[string]any{"location": "hallway"}, args[3])
	assert.Equal(t, map[string]any{"effect": "scream"}, args[4])
}

func TestRoundRobin_SkipsForeignLastWorker(t *testing.T) {
	rr := NewRoundRobin()

	d, err := rr.Select(context.Background(), situation(t, 1, "ghost_performer"))
	require.NoError(t, err)
	assert.Equal(t, core.WorkerID("sound_fx_operator"), d.Worker)
	assert.Equal(t, core.Unknown, d.Args["effect"])
}

func TestRoundRobin_SingleWorkerMayRepeat(t *testing.T) {
	rr := NewRoundRobin()
	sit := situation(t, 1, "fog_machine_tech")
	sit.Workers = sit.Workers[2:]

	d, err := rr.Select(context.Background(), sit)
	require.NoError(t, err)
	assert.Equal(t, core.WorkerID("fog_machine_tech"), d.Worker)
}

func TestRoundRobin_NoCandidates(t *testing.T) {
	_, err := NewRoundRobin().Select(context.Background(), engine.Situation{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestModelSelector_ParsesToolCall(t *testing.T) {
	m := model.NewScriptedModel("test").
		AddToolCall("ghost_performer__move_ghost", `{"location":"attic"}`, "Start in the attic.")

	s := NewModelSelector(m)
	d, err := s.Select(context.Background(), situation(t, 1, ""))
	require.NoError(t, err)

	assert.Equal(t, engine.Decision{
		Worker:    "ghost_performer",
		Action:    "move_ghost",
		Args:      map[string]any{"location": "attic"},
		Reasoning: "Start in the attic.",
	}, d)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, "You are Haunted House Manager.")
	assert.Contains(t, reqs[0].Contents[0].Text(), `prop_battery":100`)
	assert.Equal(t, model.ToolChoiceRequired, reqs[0].ToolChoice)

	var names []string
	for _, td := range reqs[0].Tools {
		names = append(names, td.Function.Name)
	}
	assert.Equal(t, []string{
		"ghost_performer__move_ghost",
		"sound_fx_operator__trigger_sound_fx",
		"fog_machine_tech__trigger_fog",
	}, names)
}

func TestModelSelector_OmitsPreviousWorkerTools(t *testing.T) {
	m := model.NewScriptedModel("test").AddToolCall("fog_machine_tech__trigger_fog", "", "")

	d, err := NewModelSelector(m).Select(context.Background(), situation(t, 2, "ghost_performer"))
	require.NoError(t, err)
	assert.Equal(t, core.WorkerID("fog_machine_tech"), d.Worker)
	assert.Empty(t, d.Args)

	tools := m.Requests()[0].Tools
	require.Len(t, tools, 2)
	assert.Contains(t, m.Requests()[0].Contents[0].Text(), "The previous round used ghost_performer.")
}

func TestModelSelector_FallsBack(t *testing.T) {
	tests := []struct {
		name   string
		script func(m *model.ScriptedModel)
		last   core.WorkerID
	}{
		{"model error", func(m *model.ScriptedModel) { m.AddError(errors.New("upstream 500")) }, ""},
		{"no tool call", func(m *model.ScriptedModel) { m.AddText("I'd rather not.") }, ""},
		{"unknown tool", func(m *model.ScriptedModel) { m.AddToolCall("banshee__wail", "{}", "") }, ""},
		{"unknown action", func(m *model.ScriptedModel) { m.AddToolCall("ghost_performer__wail", "{}", "") }, ""},
		{"malformed tool name", func(m *model.ScriptedModel) { m.AddToolCall("trigger_fog", "{}", "") }, ""},
		{"repeated worker", func(m *model.ScriptedModel) { m.AddToolCall("ghost_performer__move_ghost", `{"location":"attic"}`, "") }, "ghost_performer"},
		{"bad arguments", func(m *model.ScriptedModel) { m.AddToolCall("ghost_performer__move_ghost", `{"location":`, "") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model.NewScriptedModel("test")
			tt.script(m)

			var buf bytes.Buffer
			logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Output: &buf})

			fallback := engine.SelectorFunc(func(context.Context, engine.Situation) (engine.Decision, error) {
				return engine.Decision{Worker: "sound_fx_operator", Action: "trigger_sound_fx", Args: map[string]any{"effect": "creak"}}, nil
			})

			s := NewModelSelector(m, func(o *ModelSelectorOptions) {
				o.Fallback = fallback
				o.Logger = logger
			})

			d, err := s.Select(context.Background(), situation(t, 3, tt.last))
			require.NoError(t, err)
			assert.Equal(t, core.WorkerID("sound_fx_operator"), d.Worker)
			assert.Contains(t, buf.String(), "selector.model.fallback")
		})
	}
}

func TestModelSelector_DecisionLimit(t *testing.T) {
	m := model.NewScriptedModel("test").
		AddToolCall("ghost_performer__move_ghost", `{"location":"attic"}`, "").
		AddToolCall("sound_fx_operator__trigger_sound_fx", `{"effect":"scream"}`, "")

	s := NewModelSelector(m, func(o *ModelSelectorOptions) { o.MaxDecisions = 1 })
	ctx := context.Background()

	d, err := s.Select(ctx, situation(t, 1, ""))
	require.NoError(t, err)
	assert.Equal(t, core.WorkerID("ghost_performer"), d.Worker)

	d, err = s.Select(ctx, situation(t, 2, "ghost_performer"))
	require.NoError(t, err)
	assert.Equal(t, "round robin", d.Reasoning)
	assert.Len(t, m.Requests(), 1)
	assert.Equal(t, 0, s.Limiter().Remaining())
}

func TestModelSelector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewModelSelector(model.NewScriptedModel("test").AddText("late"))
	_, err := s.Select(ctx, situation(t, 1, ""))
	assert.ErrorIs(t, err, context.Canceled)
}
