package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBoundedDelta(t *testing.T) {
	tests := []struct {
		name                  string
		current, delta, floor int
		want                  int
	}{
		{"drain above floor", 100, -10, 0, 90},
		{"drain to floor", 10, -10, 0, 0},
		{"drain past floor clamps", 5, -10, 0, 0},
		{"already at floor", 0, -10, 0, 0},
		{"positive delta", 40, 15, 0, 55},
		{"custom floor", 12, -10, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyBoundedDelta(tt.current, tt.delta, tt.floor))
		})
	}
}

func TestSimulationState_CloneIsDeep(t *testing.T) {
	s := &SimulationState{
		Agent: AgentState{ScareScore: 3},
		Workers: map[WorkerID]*WorkerState{
			"ghost": {Kind: KindGhostPerformer, Resources: map[string]int{"prop_battery": 50}, Attributes: map[string]string{"ghost_placement": "attic"}},
		},
	}

	c := s.Clone()
	c.Agent.ScareScore = 99
	c.Workers["ghost"].Resources["prop_battery"] = 0
	c.Workers["ghost"].SetAttribute("ghost_placement", "cellar")

	assert.Equal(t, 3, s.Agent.ScareScore)
	lvl, ok := s.Worker("ghost").Level("prop_battery")
	require.True(t, ok)
	assert.Equal(t, 50, lvl)
	assert.Equal(t, "attic", s.Worker("ghost").Attribute("ghost_placement"))
}

func TestSimulationState_NilSafety(t *testing.T) {
	var s *SimulationState
	assert.Nil(t, s.Clone())
	assert.Nil(t, s.Worker("x"))
	assert.Nil(t, s.WorkerIDs())

	var w *WorkerState
	_, ok := w.Level("any")
	assert.False(t, ok)
	assert.Equal(t, Unknown, w.Attribute("any"))
}

func TestSimulationState_WorkerIDsSorted(t *testing.T) {
	s := &SimulationState{Workers: map[WorkerID]*WorkerState{"c": {}, "a": {}, "b": {}}}
	assert.Equal(t, []WorkerID{"a", "b", "c"}, s.WorkerIDs())
}

func TestWorkerKind_TextRoundTrip(t *testing.T) {
	for _, k := range []WorkerKind{KindGhostPerformer, KindSoundFXOperator, KindFogMachineTech} {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var got WorkerKind
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, k, got)
	}

	var k WorkerKind
	assert.Error(t, k.UnmarshalText([]byte("poltergeist")))
	assert.Error(t, k.UnmarshalText([]byte("unknown")))
}
