package core

import (
	"fmt"
	"maps"
	"slices"
)

// Unknown is the sentinel value used for auxiliary attributes that have not
// been observed yet (e.g. a ghost placement before the first move).
const Unknown = "unknown"

// WorkerID identifies a worker within a simulation.
type WorkerID string

// String implements fmt.Stringer.
func (id WorkerID) String() string { return string(id) }

// WorkerKind is the closed set of worker variants a simulation can host.
type WorkerKind int

const (
	// KindUnknown is the zero value and never valid in a running simulation.
	KindUnknown WorkerKind = iota
	// KindGhostPerformer moves a ghost prop around the house.
	KindGhostPerformer
	// KindSoundFXOperator plays sound effects.
	KindSoundFXOperator
	// KindFogMachineTech runs the fog machine.
	KindFogMachineTech
)

var workerKindNames = map[WorkerKind]string{
	KindUnknown:         "unknown",
	KindGhostPerformer:  "ghost_performer",
	KindSoundFXOperator: "sound_fx_operator",
	KindFogMachineTech:  "fog_machine_tech",
}

// String returns the snake_case name of the kind.
func (k WorkerKind) String() string {
	if s, ok := workerKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("WorkerKind(%d)", int(k))
}

// ParseWorkerKind converts a snake_case name to a WorkerKind.
func ParseWorkerKind(s string) (WorkerKind, error) {
	for k, name := range workerKindNames {
		if name == s && k != KindUnknown {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown worker kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k WorkerKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *WorkerKind) UnmarshalText(b []byte) error {
	parsed, err := ParseWorkerKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AgentState holds the overseeing agent's cumulative counters. The counters are
// not floor-clamped: negative deltas are permitted by the contract.
type AgentState struct {
	ScareScore       int `json:"scare_score"`
	GuestStressLevel int `json:"guest_stress_level"`
}

// WorkerState holds one worker's resource levels and auxiliary attributes.
// Resource levels never drop below zero when updated through ApplyBoundedDelta.
type WorkerState struct {
	Kind       WorkerKind        `json:"kind"`
	Resources  map[string]int    `json:"resources"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Level returns the named resource level and whether the worker tracks it.
func (w *WorkerState) Level(resource string) (int, bool) {
	if w == nil || w.Resources == nil {
		return 0, false
	}
	v, ok := w.Resources[resource]
	return v, ok
}

// Attribute returns the named auxiliary attribute or Unknown when absent.
func (w *WorkerState) Attribute(name string) string {
	if w == nil || w.Attributes == nil {
		return Unknown
	}
	if v, ok := w.Attributes[name]; ok {
		return v
	}
	return Unknown
}

// SetAttribute records an auxiliary attribute, allocating the map lazily.
func (w *WorkerState) SetAttribute(name, value string) {
	if w.Attributes == nil {
		w.Attributes = map[string]string{}
	}
	w.Attributes[name] = value
}

// Clone returns a deep copy of the worker state.
func (w *WorkerState) Clone() *WorkerState {
	if w == nil {
		return nil
	}
	return &WorkerState{
		Kind:       w.Kind,
		Resources:  maps.Clone(w.Resources),
		Attributes: maps.Clone(w.Attributes),
	}
}

// SimulationState is the record threaded through every state-update callback
// for the life of one simulation run.
type SimulationState struct {
	Agent   AgentState                `json:"agent_state"`
	Workers map[WorkerID]*WorkerState `json:"worker_states"`
}

// Worker returns the state of the given worker, or nil if it is not tracked.
func (s *SimulationState) Worker(id WorkerID) *WorkerState {
	if s == nil || s.Workers == nil {
		return nil
	}
	return s.Workers[id]
}

// WorkerIDs returns the tracked worker identifiers in lexical order.
func (s *SimulationState) WorkerIDs() []WorkerID {
	if s == nil {
		return nil
	}
	ids := slices.Collect(maps.Keys(s.Workers))
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy safe for independent mutation. Snapshots handed to
// observers are always clones.
func (s *SimulationState) Clone() *SimulationState {
	if s == nil {
		return nil
	}
	c := &SimulationState{Agent: s.Agent, Workers: make(map[WorkerID]*WorkerState, len(s.Workers))}
	for id, w := range s.Workers {
		c.Workers[id] = w.Clone()
	}
	return c
}

// ApplyBoundedDelta adds delta to current and clamps the result at floor.
func ApplyBoundedDelta(current, delta, floor int) int {
	return max(floor, current+delta)
}
