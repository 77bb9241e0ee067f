package state_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/internal/testutil"
	"github.com/hupe1980/hauntmesh/logging"
	"github.com/hupe1980/hauntmesh/state"
)

var (
	ghostPolicy = state.WorkerPolicy{
		Worker: "ghost_performer", Resource: "prop_battery", DrainStep: 10,
		DrainTags: []core.ActionTag{core.ActionMoveGhost}, PlacementTag: core.ActionMoveGhost, PlacementAttr: "ghost_placement",
	}
	soundPolicy = state.WorkerPolicy{
		Worker: "sound_fx_operator", Resource: "speaker_battery", DrainStep: 10,
		DrainTags: []core.ActionTag{core.ActionScareGuest},
	}
	fogPolicy = state.WorkerPolicy{
		Worker: "fog_machine_tech", Resource: "fog_fluid_level", DrainStep: 10,
		DrainTags: []core.ActionTag{core.ActionTriggerFog},
	}
	agentPolicy = state.AgentPolicy{ScoringTags: []core.ActionTag{core.ActionScareGuest}}
)

func canonical() *core.SimulationState { return testutil.Haunted(100, 100, 100).Build() }

type workerCase struct {
	name   string
	policy state.WorkerPolicy
	tag    core.ActionTag
}

var workerCases = []workerCase{
	{"ghost", ghostPolicy, core.ActionMoveGhost},
	{"sound", soundPolicy, core.ActionScareGuest},
	{"fog", fogPolicy, core.ActionTriggerFog},
}

func level(t *testing.T, st *core.SimulationState, p state.WorkerPolicy) int {
	t.Helper()
	lvl, ok := st.Worker(p.Worker).Level(p.Resource)
	require.True(t, ok)
	return lvl
}

func TestWorkerStateFn_NilPreviousReturnsCanonical(t *testing.T) {
	outcomes := []*core.ActionOutcome{
		nil,
		testutil.NewOutcomeBuilder(core.ActionMoveGhost).Location("attic").Build(),
		testutil.NewOutcomeBuilder(core.ActionScareGuest).Failed().Build(),
	}

	for _, wc := range workerCases {
		fn := state.NewWorkerStateFn(wc.policy, canonical)
		for _, o := range outcomes {
			assert.Equal(t, canonical(), fn(o, nil), wc.name)
		}
	}
}

func TestWorkerStateFn_DrainClampsAtZero(t *testing.T) {
	for _, wc := range workerCases {
		t.Run(wc.name, func(t *testing.T) {
			fn := state.NewWorkerStateFn(wc.policy, canonical)
			prev := testutil.Haunted(0, 0, 0).Build()

			next := fn(testutil.NewOutcomeBuilder(wc.tag).Location("hall").Build(), prev)
			assert.Equal(t, 0, level(t, next, wc.policy))
		})
	}
}

func TestWorkerStateFn_DrainByStep(t *testing.T) {
	for _, wc := range workerCases {
		for _, r := range []int{100, 55, 10, 7, 1} {
			fn := state.NewWorkerStateFn(wc.policy, canonical)
			prev := testutil.Haunted(r, r, r).Build()

			next := fn(testutil.NewOutcomeBuilder(wc.tag).Build(), prev)
			assert.Equal(t, max(0, r-10), level(t, next, wc.policy), "%s at %d", wc.name, r)
		}
	}
}

func TestWorkerStateFn_OnlyOwnResourceChanges(t *testing.T) {
	fn := state.NewWorkerStateFn(soundPolicy, canonical)
	next := fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Points(3, 2).Build(), testutil.Haunted(50, 50, 50).Build())

	assert.Equal(t, 40, level(t, next, soundPolicy))
	assert.Equal(t, 50, level(t, next, ghostPolicy))
	assert.Equal(t, 50, level(t, next, fogPolicy))
	assert.Equal(t, core.AgentState{}, next.Agent)
}

func TestWorkerStateFn_PlacementUpdatesWhenDepleted(t *testing.T) {
	fn := state.NewWorkerStateFn(ghostPolicy, canonical)
	prev := testutil.Haunted(0, 100, 100).Build()

	next := fn(testutil.NewOutcomeBuilder(core.ActionMoveGhost).Location("attic").Build(), prev)

	assert.Equal(t, "attic", next.Worker("ghost_performer").Attribute("ghost_placement"))
	assert.Equal(t, 0, level(t, next, ghostPolicy))
}

func TestWorkerStateFn_MissingLocationDefaultsToUnknown(t *testing.T) {
	fn := state.NewWorkerStateFn(ghostPolicy, canonical)
	prev := testutil.Haunted(100, 100, 100).Build()
	prev.Worker("ghost_performer").SetAttribute("ghost_placement", "attic")

	next := fn(testutil.NewOutcomeBuilder(core.ActionMoveGhost).Build(), prev)

	assert.Equal(t, core.Unknown, next.Worker("ghost_performer").Attribute("ghost_placement"))
	assert.Equal(t, 90, level(t, next, ghostPolicy))
}

func TestWorkerStateFn_FailedOutcomeLeavesStateUntouched(t *testing.T) {
	fn := state.NewWorkerStateFn(ghostPolicy, canonical)
	prev := testutil.Haunted(70, 100, 100).Build()
	want := prev.Clone()

	next := fn(testutil.NewOutcomeBuilder(core.ActionMoveGhost).Location("attic").Failed().Build(), prev)

	assert.Same(t, prev, next)
	assert.Equal(t, want, next)
}

func TestWorkerStateFn_AbsentOutcomeIsIdempotent(t *testing.T) {
	for _, wc := range workerCases {
		fn := state.NewWorkerStateFn(wc.policy, canonical)
		prev := testutil.Haunted(30, 40, 50).Agent(2, 1).Build()
		want := prev.Clone()

		first := fn(nil, prev)
		second := fn(nil, first)

		assert.Equal(t, want, first, wc.name)
		assert.Equal(t, want, second, wc.name)
	}
}

func TestWorkerStateFn_TagMatching(t *testing.T) {
	fn := state.NewWorkerStateFn(fogPolicy, canonical)

	next := fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Build(), testutil.Haunted(100, 100, 100).Build())
	assert.Equal(t, 100, level(t, next, fogPolicy), "foreign tag must not drain")

	legacy := core.Done("Fog machine activated!", core.PayloadFromMap(map[string]any{"action": "fog_fluid_level"}))
	next = fn(&legacy, next)
	assert.Equal(t, 90, level(t, next, fogPolicy), "legacy fog tag drains")
}

func TestWorkerStateFn_EmptyDrainTagsDrainOnAnySuccess(t *testing.T) {
	p := fogPolicy
	p.DrainTags = nil
	fn := state.NewWorkerStateFn(p, canonical)

	unknown := core.Done("?", core.Payload{})
	next := fn(&unknown, testutil.Haunted(100, 100, 25).Build())
	assert.Equal(t, 15, level(t, next, p))
}

func TestWorkerStateFn_UnknownWorker(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Output: &buf})

	p := ghostPolicy
	p.Worker = "banshee"
	fn := state.NewWorkerStateFn(p, canonical, func(o *state.Options) { o.Logger = logger })

	prev := canonical()
	next := fn(testutil.NewOutcomeBuilder(core.ActionMoveGhost).Build(), prev)

	assert.Equal(t, canonical(), next)
	assert.Contains(t, buf.String(), "state.worker.unknown")
}

func TestWorkerStateFn_LogsBeforeAfter(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Output: &buf})
	fn := state.NewWorkerStateFn(ghostPolicy, canonical, func(o *state.Options) { o.Logger = logger })

	fn(testutil.NewOutcomeBuilder(core.ActionMoveGhost).Location("cellar").Build(), canonical())

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, `"msg":"worker.action"`)
	assert.Contains(t, out, `"msg":"state.change"`)
	assert.Contains(t, out, `"ghost_placement":"cellar"`)
}

func TestAgentStateFn_NilPreviousReturnsCanonical(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)
	assert.Equal(t, canonical(), fn(nil, nil))
	assert.Equal(t, canonical(), fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Points(3, 2).Build(), nil))
}

func TestAgentStateFn_ScareAccumulates(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)
	prev := testutil.Haunted(100, 100, 100).Agent(5, 3).Build()

	next := fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Points(3, 2).Build(), prev)

	assert.Equal(t, core.AgentState{ScareScore: 8, GuestStressLevel: 5}, next.Agent)
}

func TestAgentStateFn_NegativeDeltasAreNotClamped(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)
	prev := testutil.Haunted(100, 100, 100).Agent(1, 0).Build()

	next := fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Points(-4, -2).Build(), prev)

	assert.Equal(t, core.AgentState{ScareScore: -3, GuestStressLevel: -2}, next.Agent)
}

func TestAgentStateFn_MissingDeltasCountAsZero(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)
	prev := testutil.Haunted(100, 100, 100).Agent(5, 3).Build()

	next := fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Build(), prev)

	assert.Equal(t, core.AgentState{ScareScore: 5, GuestStressLevel: 3}, next.Agent)
}

func TestAgentStateFn_NonScoringTagsIgnored(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)

	for _, tag := range []core.ActionTag{core.ActionMoveGhost, core.ActionTriggerFog, core.ActionUnknown} {
		prev := testutil.Haunted(100, 100, 100).Agent(5, 3).Build()
		next := fn(testutil.NewOutcomeBuilder(tag).Points(9, 9).Build(), prev)
		assert.Equal(t, core.AgentState{ScareScore: 5, GuestStressLevel: 3}, next.Agent, tag.String())
	}
}

func TestAgentStateFn_FailedAndAbsentOutcomes(t *testing.T) {
	fn := state.NewAgentStateFn(agentPolicy, canonical)
	prev := testutil.Haunted(100, 100, 100).Agent(5, 3).Build()
	want := prev.Clone()

	assert.Equal(t, want, fn(testutil.NewOutcomeBuilder(core.ActionScareGuest).Points(3, 2).Failed().Build(), prev))
	assert.Equal(t, want, fn(nil, prev))
	assert.Equal(t, want, fn(nil, prev))
}
