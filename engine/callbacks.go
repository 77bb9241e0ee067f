package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/hauntmesh/core"
)

// CallbackType defines the lifecycle points of a round where callbacks run.
//
// Callbacks provide a way to hook into the round loop without modifying the
// engine. Observers such as the history store, the websocket hub and the
// telemetry recorder are all plain callbacks.
//
// Available callback types:
//   - BeforeRound: before the selector is consulted
//   - AfterAction: after the chosen action returned its outcome
//   - OnStateChange: after the worker and agent state callbacks ran
//   - AfterRound: after the round event was recorded
//   - OnError: when selection or an action fails
type CallbackType string

const (
	// CallbackBeforeRound is triggered before a round starts. Returning an
	// error aborts the round.
	CallbackBeforeRound CallbackType = "before_round"

	// CallbackAfterAction is triggered once the action outcome is known.
	CallbackAfterAction CallbackType = "after_action"

	// CallbackAfterRound is triggered after the round event is complete.
	CallbackAfterRound CallbackType = "after_round"

	// CallbackOnStateChange is triggered after the state callbacks ran.
	CallbackOnStateChange CallbackType = "on_state_change"

	// CallbackOnError is triggered when a decision or action fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the round information a callback may inspect.
//
// State is always a private snapshot; mutating it never affects the engine.
type CallbackContext struct {
	// RunID identifies the run the round belongs to.
	RunID string

	// Round is the 1-based round number.
	Round int

	// Decision is the selector's choice. Nil for before_round and for
	// on_error raised by the selector.
	Decision *Decision

	// Outcome is the action outcome. Set from after_action onwards.
	Outcome *core.ActionOutcome

	// Event is the recorded round. Set for on_state_change and after_round.
	Event *core.RoundEvent

	// State is a snapshot of the simulation state at the callback point.
	State *core.SimulationState

	// Err is the failure that triggered on_error.
	Err error

	// CallbackType indicates which lifecycle point triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for round lifecycle hooks.
//
// Implementations should be fast: callbacks run synchronously on the round
// loop goroutine.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	printRound := NewFunctionCallback(
//	    CallbackAfterRound,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        fmt.Printf("round %d: %s\n", cc.Round, cc.Event.Outcome.Message)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is a registry of callbacks keyed by type.
//
// Callbacks run in registration order. The first error stops the remaining
// callbacks of that type and is returned to the engine.
//
// Thread Safety:
// Registration is not synchronised. Register everything before the first
// round.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds callbacks to the manager.
//
// Example:
//
//	manager := NewCallbackManager()
//	manager.RegisterCallback(store.Callback(), hub.Callback())
func (cm *CallbackManager) RegisterCallback(callbacks ...Callback) {
	for _, callback := range callbacks {
		callbackType := callback.Type()
		cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
	}
}

// Len returns how many callbacks are registered for the given type.
func (cm *CallbackManager) Len(callbackType CallbackType) int {
	return len(cm.callbacks[callbackType])
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return fmt.Errorf("%s callback: %w", callbackType, err)
		}
	}

	return nil
}

// LoggingCallback forwards a one-line summary of every round to a logging
// function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackAfterRound, func(msg string) {
//	    log.Printf("[HAUNT] %s", msg)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the round with the decision and outcome when available.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	message := fmt.Sprintf("[%s] run=%s round=%d", c.callbackType, callbackCtx.RunID, callbackCtx.Round)
	if d := callbackCtx.Decision; d != nil {
		message += fmt.Sprintf(" worker=%s action=%s", d.Worker, d.Action)
	}
	if o := callbackCtx.Outcome; o != nil {
		message += fmt.Sprintf(" status=%s message=%q", o.Status, o.Message)
	}
	if callbackCtx.Err != nil {
		message += fmt.Sprintf(" error=%q", callbackCtx.Err.Error())
	}

	c.logger(message)

	return nil
}

// StateValidationCallback validates every post-round state. A returned error
// is reported through on_error; the state itself is already committed.
//
// Example:
//
//	callback := NewStateValidationCallback(func(st *core.SimulationState) error {
//	    for id, w := range st.Workers {
//	        for name, level := range w.Resources {
//	            if level < 0 {
//	                return fmt.Errorf("%s.%s went negative", id, name)
//	            }
//	        }
//	    }
//	    return nil
//	})
type StateValidationCallback struct {
	validator func(st *core.SimulationState) error
}

// NewStateValidationCallback creates a new state validation callback.
func NewStateValidationCallback(validator func(st *core.SimulationState) error) *StateValidationCallback {
	return &StateValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackOnStateChange).
func (c *StateValidationCallback) Type() CallbackType {
	return CallbackOnStateChange
}

// Execute runs the validator against the snapshot.
func (c *StateValidationCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.validator != nil && callbackCtx.State != nil {
		return c.validator(callbackCtx.State)
	}
	return nil
}
