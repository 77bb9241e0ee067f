// Package state implements the state-update callbacks of a simulation: one
// per worker (resource drain plus placement bookkeeping) and one for the
// overseeing agent (score accumulation).
//
// Every callback follows the same contract: a nil previous state is the
// first-call signal and yields a fresh canonical state from the factory; a
// nil or failed outcome leaves the state untouched; otherwise the state is
// updated in place and returned as the authoritative next state.
package state

import (
	"slices"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/logging"
)

// StateFn maps (latest outcome, previous state) to the next state. It is
// registered once per worker and once for the agent.
type StateFn func(outcome *core.ActionOutcome, prev *core.SimulationState) *core.SimulationState

// Factory produces a fresh canonical initial state.
type Factory func() *core.SimulationState

// WorkerPolicy configures how a worker's callback reacts to outcomes.
type WorkerPolicy struct {
	Worker   core.WorkerID
	Resource string
	// DrainStep is subtracted from the resource per matching outcome.
	DrainStep int
	// DrainTags restricts draining to outcomes carrying one of these tags.
	// Empty means every successful outcome drains.
	DrainTags []core.ActionTag
	// PlacementTag marks outcomes whose location updates PlacementAttr.
	// ActionUnknown disables placement tracking.
	PlacementTag  core.ActionTag
	PlacementAttr string
}

func (p WorkerPolicy) drains(tag core.ActionTag) bool {
	return len(p.DrainTags) == 0 || slices.Contains(p.DrainTags, tag)
}

func (p WorkerPolicy) tracksPlacement(tag core.ActionTag) bool {
	return p.PlacementTag != core.ActionUnknown && p.PlacementAttr != "" && tag == p.PlacementTag
}

// AgentPolicy configures the agent callback.
type AgentPolicy struct {
	// ScoringTags lists the tags whose point deltas feed the agent counters.
	ScoringTags []core.ActionTag
}

// Options configures callback construction.
type Options struct {
	// Logger receives state.* records. Defaults to NoOpLogger.
	Logger logging.Logger
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

// NewWorkerStateFn builds the state callback for one worker.
//
// On a successful outcome:
//  1. the tracked resource is reduced by DrainStep (clamped at zero) when the
//     tag matches the drain rule and the level is above zero;
//  2. a matching placement outcome overwrites the placement attribute with the
//     payload location (core.Unknown when missing), regardless of the level.
func NewWorkerStateFn(policy WorkerPolicy, factory Factory, optFns ...func(o *Options)) StateFn {
	opts := buildOptions(optFns)
	logger := opts.Logger

	return func(outcome *core.ActionOutcome, prev *core.SimulationState) *core.SimulationState {
		if prev == nil {
			logger.Debug("state.worker.init", "worker", policy.Worker.String())
			return factory()
		}
		if outcome == nil {
			return prev
		}

		logAction(logger, policy.Worker, outcome)

		if !outcome.Succeeded() {
			return prev
		}

		ws := prev.Worker(policy.Worker)
		if ws == nil {
			logger.Warn("state.worker.unknown", "worker", policy.Worker.String())
			return prev
		}

		before := snapshot(ws)
		changed := false

		if level, ok := ws.Level(policy.Resource); ok && level > 0 && policy.drains(outcome.Payload.Action) {
			ws.Resources[policy.Resource] = core.ApplyBoundedDelta(level, -policy.DrainStep, 0)
			changed = true
		}

		if policy.tracksPlacement(outcome.Payload.Action) {
			ws.SetAttribute(policy.PlacementAttr, outcome.Payload.LocationOrUnknown())
			changed = true
		}

		if changed {
			logChange(logger, "worker "+policy.Worker.String(), before, snapshot(ws))
		}

		return prev
	}
}

// NewAgentStateFn builds the state callback for the overseeing agent. A
// successful outcome whose tag is a scoring tag adds its scare and stress
// deltas (zero when missing) to the cumulative counters. The counters are
// not clamped.
func NewAgentStateFn(policy AgentPolicy, factory Factory, optFns ...func(o *Options)) StateFn {
	opts := buildOptions(optFns)
	logger := opts.Logger

	return func(outcome *core.ActionOutcome, prev *core.SimulationState) *core.SimulationState {
		if prev == nil {
			logger.Debug("state.agent.init")
			return factory()
		}
		if !outcome.Succeeded() || !slices.Contains(policy.ScoringTags, outcome.Payload.Action) {
			return prev
		}

		before := agentSnapshot(prev.Agent)
		prev.Agent.ScareScore += outcome.Payload.ScareDelta()
		prev.Agent.GuestStressLevel += outcome.Payload.StressDelta()
		logChange(logger, "agent", before, agentSnapshot(prev.Agent))

		return prev
	}
}

func snapshot(ws *core.WorkerState) map[string]any {
	m := make(map[string]any, len(ws.Resources)+len(ws.Attributes))
	for k, v := range ws.Resources {
		m[k] = v
	}
	for k, v := range ws.Attributes {
		m[k] = v
	}
	return m
}

func agentSnapshot(a core.AgentState) map[string]any {
	return map[string]any{"scare_score": a.ScareScore, "guest_stress_level": a.GuestStressLevel}
}

type stateChangeLogger interface {
	LogStateChange(title string, before, after map[string]any)
}

type actionLogger interface {
	LogAction(worker, action string, success bool, payload map[string]any)
}

func logChange(l logging.Logger, title string, before, after map[string]any) {
	if sl, ok := l.(stateChangeLogger); ok {
		sl.LogStateChange(title, before, after)
		return
	}
	l.Info("state.change", "title", title, "before", before, "after", after)
}

func logAction(l logging.Logger, worker core.WorkerID, o *core.ActionOutcome) {
	if al, ok := l.(actionLogger); ok {
		al.LogAction(worker.String(), o.Payload.Action.String(), o.Succeeded(), o.Payload.Map())
		return
	}
	l.Debug("worker.action", "worker", worker.String(), "action", o.Payload.Action.String(), "status", o.Status.String())
}
