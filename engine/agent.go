package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/hauntmesh/action"
	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/state"
)

var (
	// ErrNoWorkers is returned when an agent declares no workers.
	ErrNoWorkers = errors.New("agent has no workers")
	// ErrUnknownWorker is returned when a worker id is not part of the agent
	// or missing from the initial state.
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrUnknownAction is returned when a decision names an action the
	// worker does not expose.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidAgent wraps structural problems of an agent definition.
	ErrInvalidAgent = errors.New("invalid agent")
	// ErrNoSelector is returned when an engine is built without a selector.
	ErrNoSelector = errors.New("no selector configured")
	// ErrBusy is returned when Step or Run is called while another call is
	// still in progress.
	ErrBusy = errors.New("engine is busy")
)

// Worker is a subordinate unit owning one set of actions and one state
// callback.
type Worker struct {
	ID          core.WorkerID
	Description string
	StateFn     state.StateFn
	Actions     []action.Action
}

// Action returns the named action of the worker.
func (w Worker) Action(name string) (action.Action, bool) {
	for _, a := range w.Actions {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// ActionNames returns the action names in declaration order.
func (w Worker) ActionNames() []string {
	names := make([]string, len(w.Actions))
	for i, a := range w.Actions {
		names[i] = a.Name()
	}
	return names
}

// Agent is the top-level orchestrator definition: goal, description, its own
// state callback and the workers it coordinates.
type Agent struct {
	Name        string
	Goal        string
	Description string
	StateFn     state.StateFn
	Workers     []Worker
}

// Worker returns the worker with the given id.
func (a *Agent) Worker(id core.WorkerID) (Worker, bool) {
	for _, w := range a.Workers {
		if w.ID == id {
			return w, true
		}
	}
	return Worker{}, false
}

// Validate checks the agent definition: at least one worker, unique worker
// ids, unique action names per worker, and every worker present in the
// initial state produced by the agent callback.
func (a *Agent) Validate() error {
	if a.StateFn == nil {
		return fmt.Errorf("%w: agent %q has no state callback", ErrInvalidAgent, a.Name)
	}
	if len(a.Workers) == 0 {
		return ErrNoWorkers
	}

	initial := a.StateFn(nil, nil)
	if initial == nil {
		return fmt.Errorf("%w: agent %q produced no initial state", ErrInvalidAgent, a.Name)
	}

	seen := make(map[core.WorkerID]bool, len(a.Workers))
	for _, w := range a.Workers {
		if w.ID == "" {
			return fmt.Errorf("%w: worker without id", ErrInvalidAgent)
		}
		if seen[w.ID] {
			return fmt.Errorf("%w: duplicate worker %q", ErrInvalidAgent, w.ID)
		}
		seen[w.ID] = true

		if w.StateFn == nil {
			return fmt.Errorf("%w: worker %q has no state callback", ErrInvalidAgent, w.ID)
		}
		if len(w.Actions) == 0 {
			return fmt.Errorf("%w: worker %q has no actions", ErrInvalidAgent, w.ID)
		}

		names := make(map[string]bool, len(w.Actions))
		for _, act := range w.Actions {
			if names[act.Name()] {
				return fmt.Errorf("%w: worker %q declares action %q twice", ErrInvalidAgent, w.ID, act.Name())
			}
			names[act.Name()] = true
		}

		if initial.Worker(w.ID) == nil {
			return fmt.Errorf("%w: %q is missing from the initial state", ErrUnknownWorker, w.ID)
		}
	}

	return nil
}

// Decision is a selector's choice for one round.
type Decision struct {
	Worker    core.WorkerID  `json:"worker"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args,omitempty"`
	Reasoning string         `json:"reasoning,omitempty"`
}

// Situation is everything a selector sees when deciding a round.
type Situation struct {
	// Round is the 1-based number of the round being decided.
	Round int
	// AgentName, Goal and Description describe the orchestrator.
	AgentName   string
	Goal        string
	Description string
	// Workers are the candidates in declaration order.
	Workers []Worker
	// State is a private snapshot of the current state.
	State *core.SimulationState
	// LastWorker is the worker of the previous round, empty on the first.
	LastWorker core.WorkerID
}

// Selector decides which worker acts next and with which arguments.
type Selector interface {
	Select(ctx context.Context, situation Situation) (Decision, error)
}

// SelectorFunc adapts a plain function to the Selector interface.
type SelectorFunc func(ctx context.Context, situation Situation) (Decision, error)

// Select calls f.
func (f SelectorFunc) Select(ctx context.Context, situation Situation) (Decision, error) {
	return f(ctx, situation)
}
