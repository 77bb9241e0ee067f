// Package scenario describes a simulation setup: the overseeing agent, its
// workers and their depletable resources. Scenarios are loaded from YAML and
// produce the canonical initial SimulationState on demand.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/state"
)

// DefaultDrainStep is applied when a worker does not configure drain_step.
const DefaultDrainStep = 10

//go:embed haunted_house.yaml
var hauntedHouseYAML []byte

// ErrInvalidScenario wraps every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is the top level definition loaded from YAML.
type Scenario struct {
	Name    string       `yaml:"name"`
	Agent   AgentSpec    `yaml:"agent"`
	Workers []WorkerSpec `yaml:"workers"`
}

// AgentSpec describes the overseeing agent.
type AgentSpec struct {
	Name        string   `yaml:"name"`
	Goal        string   `yaml:"goal"`
	Description string   `yaml:"description"`
	ScoringTags []string `yaml:"scoring_tags"`
}

// WorkerSpec describes one worker and its depletable resource.
type WorkerSpec struct {
	ID            core.WorkerID   `yaml:"id"`
	Kind          core.WorkerKind `yaml:"kind"`
	Description   string          `yaml:"description"`
	Resource      string          `yaml:"resource"`
	Capacity      int             `yaml:"capacity"`
	DrainStep     int             `yaml:"drain_step"`
	DrainTags     []string        `yaml:"drain_tags"`
	PlacementTag  string          `yaml:"placement_tag"`
	PlacementAttr string          `yaml:"placement_attr"`
}

// Default returns the built-in haunted house scenario.
func Default() *Scenario {
	s, err := Parse(hauntedHouseYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scenario: %v", err))
	}
	return s
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML scenario.
func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural invariants.
func (s *Scenario) Validate() error {
	if len(s.Workers) == 0 {
		return fmt.Errorf("%w: no workers", ErrInvalidScenario)
	}
	for _, tag := range s.Agent.ScoringTags {
		if core.ParseActionTag(tag) == core.ActionUnknown {
			return fmt.Errorf("%w: agent scoring tag %q is not a known action", ErrInvalidScenario, tag)
		}
	}
	seen := make(map[core.WorkerID]bool, len(s.Workers))
	for i, w := range s.Workers {
		switch {
		case w.ID == "":
			return fmt.Errorf("%w: worker #%d has no id", ErrInvalidScenario, i)
		case seen[w.ID]:
			return fmt.Errorf("%w: duplicate worker %q", ErrInvalidScenario, w.ID)
		case w.Kind == core.KindUnknown:
			return fmt.Errorf("%w: worker %q has no kind", ErrInvalidScenario, w.ID)
		case w.Resource == "":
			return fmt.Errorf("%w: worker %q has no resource", ErrInvalidScenario, w.ID)
		case w.Capacity <= 0:
			return fmt.Errorf("%w: worker %q capacity must be positive", ErrInvalidScenario, w.ID)
		case w.DrainStep < 0:
			return fmt.Errorf("%w: worker %q drain_step must not be negative", ErrInvalidScenario, w.ID)
		case (w.PlacementTag == "") != (w.PlacementAttr == ""):
			return fmt.Errorf("%w: worker %q needs both placement_tag and placement_attr", ErrInvalidScenario, w.ID)
		}
		for _, tag := range append(append([]string(nil), w.DrainTags...), w.PlacementTag) {
			if tag != "" && core.ParseActionTag(tag) == core.ActionUnknown {
				return fmt.Errorf("%w: worker %q references unknown action tag %q", ErrInvalidScenario, w.ID, tag)
			}
		}
		seen[w.ID] = true
	}
	return nil
}

// Worker returns the spec of the given worker.
func (s *Scenario) Worker(id core.WorkerID) (WorkerSpec, bool) {
	for _, w := range s.Workers {
		if w.ID == id {
			return w, true
		}
	}
	return WorkerSpec{}, false
}

// InitialState builds a fresh canonical state: agent counters at zero, every
// resource at capacity, every placement attribute at core.Unknown. Each call
// returns a new value; nothing is shared between runs.
func (s *Scenario) InitialState() *core.SimulationState {
	st := &core.SimulationState{Workers: make(map[core.WorkerID]*core.WorkerState, len(s.Workers))}
	for _, w := range s.Workers {
		ws := &core.WorkerState{Kind: w.Kind, Resources: map[string]int{w.Resource: w.Capacity}}
		if w.PlacementAttr != "" {
			ws.SetAttribute(w.PlacementAttr, core.Unknown)
		}
		st.Workers[w.ID] = ws
	}
	return st
}

// Policy converts the spec into the state-update policy of the worker.
func (w WorkerSpec) Policy() state.WorkerPolicy {
	step := w.DrainStep
	if step == 0 {
		step = DefaultDrainStep
	}
	tags := make([]core.ActionTag, 0, len(w.DrainTags))
	for _, t := range w.DrainTags {
		tags = append(tags, core.ParseActionTag(t))
	}
	return state.WorkerPolicy{
		Worker:        w.ID,
		Resource:      w.Resource,
		DrainStep:     step,
		DrainTags:     tags,
		PlacementTag:  core.ParseActionTag(w.PlacementTag),
		PlacementAttr: w.PlacementAttr,
	}
}

// AgentPolicy converts the agent spec into the agent state-update policy.
func (s *Scenario) AgentPolicy() state.AgentPolicy {
	tags := make([]core.ActionTag, 0, len(s.Agent.ScoringTags))
	for _, t := range s.Agent.ScoringTags {
		tags = append(tags, core.ParseActionTag(t))
	}
	return state.AgentPolicy{ScoringTags: tags}
}
