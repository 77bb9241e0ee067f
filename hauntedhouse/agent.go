package hauntedhouse

import (
	"fmt"

	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/logging"
	"github.com/hupe1980/hauntmesh/scenario"
	"github.com/hupe1980/hauntmesh/state"
)

// Options configures NewAgent.
type Options struct {
	// Logger is handed to every action and state callback.
	Logger logging.Logger
}

// NewAgent wires a scenario into an engine.Agent: one worker per scenario
// worker with the action space of its kind and a state callback built from
// its policy, plus the agent callback. All callbacks share the scenario's
// InitialState as factory.
func NewAgent(sc *scenario.Scenario, optFns ...func(o *Options)) (engine.Agent, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := sc.Validate(); err != nil {
		return engine.Agent{}, err
	}

	stateOpt := func(o *state.Options) { o.Logger = opts.Logger }

	workers := make([]engine.Worker, 0, len(sc.Workers))
	for _, spec := range sc.Workers {
		actions := ActionsFor(spec.Kind, opts.Logger)
		if len(actions) == 0 {
			return engine.Agent{}, fmt.Errorf("%w: no actions for worker kind %s", scenario.ErrInvalidScenario, spec.Kind)
		}

		workers = append(workers, engine.Worker{
			ID:          spec.ID,
			Description: spec.Description,
			StateFn:     state.NewWorkerStateFn(spec.Policy(), sc.InitialState, stateOpt),
			Actions:     actions,
		})
	}

	return engine.Agent{
		Name:        sc.Agent.Name,
		Goal:        sc.Agent.Goal,
		Description: sc.Agent.Description,
		StateFn:     state.NewAgentStateFn(sc.AgentPolicy(), sc.InitialState, stateOpt),
		Workers:     workers,
	}, nil
}
