package selector

import (
	"context"
	"sync"

	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/logging"
)

// RoundRobinOptions configures a RoundRobin selector.
type RoundRobinOptions struct {
	// Values maps argument names to the values cycled through for them.
	Values map[string][]any
	// Logger receives selector.decision records.
	Logger logging.Logger
}

// RoundRobin cycles through the workers in declaration order and never
// picks the same worker twice in a row while another one is available.
// Within a worker the actions cycle too. Argument values cycle per argument
// name through Values; arguments without values get a typed zero value
// (optional ones are left out).
type RoundRobin struct {
	values map[string][]any
	logger logging.Logger

	mu        sync.Mutex
	next      int
	actionPos map[string]int
	valuePos  map[string]int
}

// NewRoundRobin creates a RoundRobin selector.
func NewRoundRobin(optFns ...func(o *RoundRobinOptions)) *RoundRobin {
	opts := RoundRobinOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RoundRobin{
		values:    opts.Values,
		logger:    logging.OrNoOp(opts.Logger),
		actionPos: map[string]int{},
		valuePos:  map[string]int{},
	}
}

// Select implements engine.Selector.
func (r *RoundRobin) Select(_ context.Context, sit engine.Situation) (engine.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var workers []engine.Worker
	for _, w := range sit.Workers {
		if len(w.Actions) > 0 {
			workers = append(workers, w)
		}
	}
	if len(workers) == 0 {
		return engine.Decision{}, ErrNoCandidates
	}

	idx := r.next % len(workers)
	if workers[idx].ID == sit.LastWorker && len(workers) > 1 {
		idx = (idx + 1) % len(workers)
	}
	r.next = idx + 1

	w := workers[idx]
	pos := r.actionPos[w.ID.String()]
	act := w.Actions[pos%len(w.Actions)]
	r.actionPos[w.ID.String()] = pos + 1

	args := map[string]any{}
	for _, arg := range act.Arguments() {
		pool := r.values[arg.Name]
		if len(pool) == 0 {
			if !arg.Optional {
				args[arg.Name] = zeroValue(arg)
			}
			continue
		}
		i := r.valuePos[arg.Name]
		args[arg.Name] = pool[i%len(pool)]
		r.valuePos[arg.Name] = i + 1
	}

	r.logger.Debug("selector.decision", "selector", "round_robin", "round", sit.Round, "worker", w.ID.String(), "action", act.Name())

	return engine.Decision{
		Worker:    w.ID,
		Action:    act.Name(),
		Args:      args,
		Reasoning: "round robin",
	}, nil
}
