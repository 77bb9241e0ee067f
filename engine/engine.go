package engine

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/hauntmesh/action"
	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/logging"
)

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	eng, err := engine.New(agent, func(o *engine.Options) {
//	    o.Selector = selector.NewRoundRobin()
//	    o.Interval = time.Second
//	    o.Logger = logger
//	})
type Options struct {
	// Selector decides each round. Required.
	Selector Selector

	// Callbacks receives lifecycle hooks. Defaults to an empty manager.
	Callbacks *CallbackManager

	// MaxRounds bounds Run when it is called with rounds <= 0. Zero means
	// run until the context is cancelled.
	MaxRounds int

	// Interval is the pause between two rounds of a Run.
	Interval time.Duration

	// DecisionTimeout bounds a single Select call. Zero disables the bound.
	DecisionTimeout time.Duration

	// RunID identifies the run. Defaults to a fresh UUID.
	RunID string

	// Tracer creates one span per round. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// RunResult summarises a Run.
type RunResult struct {
	RunID    string
	Rounds   int
	Events   []core.RoundEvent
	State    *core.SimulationState
	Duration time.Duration
}

// Engine drives an Agent round by round.
//
// Each round the engine asks the Selector for a Decision, invokes the chosen
// worker action, feeds the outcome through the worker's state callback and
// then the agent's, and records a core.RoundEvent. The callbacks always see
// the latest state; nothing runs concurrently against it.
//
// Concurrency Model:
//   - A single Step or Run may be in progress at a time; a concurrent call
//     fails fast with ErrBusy
//   - State and Round are safe to call from any goroutine
//
// Error Handling:
//   - A failing action (error or panic) becomes a failed outcome; the round
//     still completes and no resource changes
//   - A failing selector, unknown worker or unknown action aborts the round
//     and is returned to the caller
type Engine struct {
	agent     Agent
	selector  Selector
	callbacks *CallbackManager
	logger    logging.Logger
	tracer    trace.Tracer

	maxRounds       int
	interval        time.Duration
	decisionTimeout time.Duration
	runID           string

	busy atomic.Bool

	mu         sync.RWMutex
	state      *core.SimulationState
	round      int
	lastWorker core.WorkerID
}

// New validates the agent and returns an engine ready to run it.
func New(agent Agent, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		Callbacks: NewCallbackManager(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Selector == nil {
		return nil, ErrNoSelector
	}
	if err := agent.Validate(); err != nil {
		return nil, err
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.RunID == "" {
		opts.RunID = core.NewID()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("hauntmesh/engine")
	}

	return &Engine{
		agent:           agent,
		selector:        opts.Selector,
		callbacks:       opts.Callbacks,
		logger:          logging.OrNoOp(opts.Logger),
		tracer:          opts.Tracer,
		maxRounds:       opts.MaxRounds,
		interval:        opts.Interval,
		decisionTimeout: opts.DecisionTimeout,
		runID:           opts.RunID,
	}, nil
}

// RunID returns the identifier of the engine's run.
func (e *Engine) RunID() string { return e.runID }

// Agent returns the agent definition.
func (e *Engine) Agent() Agent { return e.agent }

// Callbacks returns the callback manager for late registration. Register
// before the first round.
func (e *Engine) Callbacks() *CallbackManager { return e.callbacks }

// State returns a snapshot of the current state, nil before the first round.
func (e *Engine) State() *core.SimulationState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.Clone()
}

// Round returns the number of completed rounds.
func (e *Engine) Round() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.round
}

// Step plays exactly one round.
func (e *Engine) Step(ctx context.Context) (core.RoundEvent, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return core.RoundEvent{}, ErrBusy
	}
	defer e.busy.Store(false)

	return e.step(ctx)
}

// Run plays rounds sequentially until the limit is reached, the context is
// cancelled or a round fails. rounds <= 0 falls back to Options.MaxRounds;
// when both are zero the run only ends with the context.
//
// The result always reflects the rounds completed so far, also when an error
// is returned.
func (e *Engine) Run(ctx context.Context, rounds int) (*RunResult, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	if rounds <= 0 {
		rounds = e.maxRounds
	}

	start := time.Now()
	result := &RunResult{RunID: e.runID}

	finish := func(err error) (*RunResult, error) {
		result.Rounds = len(result.Events)
		result.State = e.State()
		result.Duration = time.Since(start)

		e.logger.Info("engine.run.complete", "run_id", e.runID, "rounds", result.Rounds, "duration_ms", result.Duration.Milliseconds())

		return result, err
	}

	e.logger.Info("engine.run.start", "run_id", e.runID, "agent", e.agent.Name, "rounds", rounds)

	for i := 0; rounds <= 0 || i < rounds; i++ {
		if i > 0 && e.interval > 0 {
			timer := time.NewTimer(e.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return finish(ctx.Err())
			case <-timer.C:
			}
		}

		ev, err := e.step(ctx)
		if err != nil {
			return finish(err)
		}

		result.Events = append(result.Events, ev)
	}

	return finish(nil)
}

func (e *Engine) step(ctx context.Context) (core.RoundEvent, error) {
	if err := ctx.Err(); err != nil {
		return core.RoundEvent{}, err
	}

	e.mu.Lock()
	if e.state == nil {
		e.state = e.agent.StateFn(nil, nil)
	}
	round := e.round + 1
	lastWorker := e.lastWorker
	snapshot := e.state.Clone()
	e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "engine.round", trace.WithAttributes(
		attribute.String("run.id", e.runID),
		attribute.Int("round", round),
	))
	defer span.End()

	cbCtx := &CallbackContext{RunID: e.runID, Round: round, State: snapshot}

	e.logger.Debug("engine.round.start", "run_id", e.runID, "round", round)

	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeRound, cbCtx); err != nil {
		return core.RoundEvent{}, e.abort(ctx, span, cbCtx, err)
	}

	decision, err := e.decide(ctx, Situation{
		Round:       round,
		AgentName:   e.agent.Name,
		Goal:        e.agent.Goal,
		Description: e.agent.Description,
		Workers:     e.agent.Workers,
		State:       snapshot,
		LastWorker:  lastWorker,
	})
	if err != nil {
		return core.RoundEvent{}, e.abort(ctx, span, cbCtx, fmt.Errorf("select round %d: %w", round, err))
	}

	cbCtx.Decision = &decision

	worker, ok := e.agent.Worker(decision.Worker)
	if !ok {
		return core.RoundEvent{}, e.abort(ctx, span, cbCtx, fmt.Errorf("%w: %q", ErrUnknownWorker, decision.Worker))
	}

	act, ok := worker.Action(decision.Action)
	if !ok {
		return core.RoundEvent{}, e.abort(ctx, span, cbCtx, fmt.Errorf("%w: %q on worker %q", ErrUnknownAction, decision.Action, worker.ID))
	}

	span.SetAttributes(
		attribute.String("worker", worker.ID.String()),
		attribute.String("action", act.Name()),
	)

	outcome := e.invoke(ctx, worker, act, decision.Args)
	if !outcome.Succeeded() {
		span.SetStatus(codes.Error, outcome.Message)
		e.fireError(ctx, cbCtx, fmt.Errorf("%s.%s: %s", worker.ID, act.Name(), outcome.Message))
	}

	cbCtx.Outcome = &outcome
	e.fire(ctx, CallbackAfterAction, cbCtx)

	ev := core.NewRoundEvent(e.runID, round, worker.ID, act.Name())
	ev.Args = maps.Clone(decision.Args)
	ev.Reasoning = decision.Reasoning
	ev.Outcome = outcome

	e.mu.Lock()
	next := worker.StateFn(&outcome, e.state)
	if next != nil {
		e.state = next
	}
	if next = e.agent.StateFn(&outcome, e.state); next != nil {
		e.state = next
	}
	e.round = round
	e.lastWorker = worker.ID
	ev.State = e.state.Clone()
	e.mu.Unlock()

	cbCtx.Event = &ev
	cbCtx.State = ev.State.Clone()
	e.fire(ctx, CallbackOnStateChange, cbCtx)

	cbCtx.State = ev.State.Clone()
	e.fire(ctx, CallbackAfterRound, cbCtx)

	e.logger.Info("engine.round.complete",
		"run_id", e.runID,
		"round", round,
		"worker", worker.ID.String(),
		"action", act.Name(),
		"status", outcome.Status.String(),
		"message", outcome.Message,
	)

	return ev, nil
}

func (e *Engine) decide(ctx context.Context, situation Situation) (Decision, error) {
	if e.decisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.decisionTimeout)
		defer cancel()
	}

	return e.selector.Select(ctx, situation)
}

// invoke calls the action and converts every failure mode into a failed
// outcome. Panics are recovered so a misbehaving action never takes the
// round loop down.
func (e *Engine) invoke(ctx context.Context, worker Worker, act action.Action, args map[string]any) (outcome core.ActionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine.action.panic", "worker", worker.ID.String(), "action", act.Name(), "panic", fmt.Sprint(r))
			outcome = core.Failed(fmt.Sprintf("action %s panicked: %v", act.Name(), r))
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	out, err := act.Call(ctx, args)
	if err != nil {
		e.logger.Warn("engine.action.failed", "worker", worker.ID.String(), "action", act.Name(), "error", err.Error())
		return core.Failed(err.Error())
	}

	return out
}

// abort reports a round that could not complete.
func (e *Engine) abort(ctx context.Context, span trace.Span, cbCtx *CallbackContext, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	e.logger.Error("engine.round.aborted", "run_id", e.runID, "round", cbCtx.Round, "error", err.Error())
	e.fireError(ctx, cbCtx, err)

	return err
}

func (e *Engine) fireError(ctx context.Context, cbCtx *CallbackContext, err error) {
	cbCtx.Err = err
	e.fire(ctx, CallbackOnError, cbCtx)
	cbCtx.Err = nil
}

// fire runs callbacks whose failure must not undo a committed round; errors
// are only logged.
func (e *Engine) fire(ctx context.Context, callbackType CallbackType, cbCtx *CallbackContext) {
	if err := e.callbacks.ExecuteCallbacks(ctx, callbackType, cbCtx); err != nil {
		e.logger.Warn("engine.callback.failed", "type", string(callbackType), "round", cbCtx.Round, "error", err.Error())
	}
}
