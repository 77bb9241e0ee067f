package testutil

import (
	"github.com/hupe1980/hauntmesh/core"
)

// StateBuilder helps construct simulation states with fluent chaining.
// Example:
//
//	st := NewStateBuilder().Agent(5, 3).Worker("ghost_performer", core.KindGhostPerformer, "prop_battery", 0).Build()
type StateBuilder struct {
	agent   core.AgentState
	workers map[core.WorkerID]*core.WorkerState
	last    core.WorkerID
}

// NewStateBuilder creates an empty builder.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{workers: map[core.WorkerID]*core.WorkerState{}}
}

// Agent sets the agent counters (chainable).
func (b *StateBuilder) Agent(scare, stress int) *StateBuilder {
	b.agent = core.AgentState{ScareScore: scare, GuestStressLevel: stress}
	return b
}

// Worker adds or replaces a worker tracking one resource at the given level (chainable).
func (b *StateBuilder) Worker(id core.WorkerID, kind core.WorkerKind, resource string, level int) *StateBuilder {
	b.workers[id] = &core.WorkerState{Kind: kind, Resources: map[string]int{resource: level}}
	b.last = id
	return b
}

// Attr sets an auxiliary attribute on the most recently added worker (chainable).
func (b *StateBuilder) Attr(name, value string) *StateBuilder {
	if w, ok := b.workers[b.last]; ok {
		w.SetAttribute(name, value)
	}
	return b
}

// Build returns a fresh state; repeated calls never share maps.
func (b *StateBuilder) Build() *core.SimulationState {
	st := &core.SimulationState{Agent: b.agent, Workers: make(map[core.WorkerID]*core.WorkerState, len(b.workers))}
	for id, w := range b.workers {
		st.Workers[id] = w.Clone()
	}
	return st
}

// Haunted returns the canonical haunted house layout with the given levels
// for prop_battery, speaker_battery and fog_fluid_level.
func Haunted(ghost, sound, fog int) *StateBuilder {
	return NewStateBuilder().
		Worker("ghost_performer", core.KindGhostPerformer, "prop_battery", ghost).Attr("ghost_placement", core.Unknown).
		Worker("sound_fx_operator", core.KindSoundFXOperator, "speaker_battery", sound).
		Worker("fog_machine_tech", core.KindFogMachineTech, "fog_fluid_level", fog)
}
