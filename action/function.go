package action

import (
	"context"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/internal/util"
	"github.com/hupe1980/hauntmesh/logging"
)

// Handler is the executable entry point of a FunctionAction. It receives
// arguments that already passed schema validation.
type Handler func(ctx context.Context, args Args) (core.ActionOutcome, error)

// FunctionOptions configures a FunctionAction.
type FunctionOptions struct {
	// Logger receives action.call.* records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// FunctionAction exposes a plain Go function as an Action.
//
// Error Semantics:
//
//	*ActionError (returned by handler) -> forwarded unchanged
//	validation failure                 -> *ActionError{Code: "VALIDATION_ERROR"}
//	other error                        -> *ActionError{Code: "EXECUTION_ERROR"}
//
// A FunctionAction has no mutable state after construction and is safe for
// concurrent use.
type FunctionAction struct {
	name        string
	description string
	arguments   []Argument
	parameters  map[string]any
	schema      *jsonschema.Schema
	fn          Handler
	logger      logging.Logger
}

// NewFunctionAction constructs a FunctionAction and compiles its argument schema.
//
// Example:
//
//	move, err := NewFunctionAction(
//	  "move_ghost",
//	  "Move the ghost to a new location",
//	  []Argument{{Name: "location", Type: TypeString, Description: "Location to move the ghost to"}},
//	  func(_ context.Context, args Args) (core.ActionOutcome, error) {
//	    return hauntedhouse.MoveGhost(args.String("location", core.Unknown)), nil
//	  },
//	)
func NewFunctionAction(
	name, description string,
	args []Argument,
	fn Handler,
	optFns ...func(o *FunctionOptions),
) (*FunctionAction, error) {
	opts := FunctionOptions{Logger: logging.NoOpLogger{}}
	for _, f := range optFns {
		f(&opts)
	}

	props := make([]util.Property, len(args))
	for i, a := range args {
		props[i] = util.Property{Name: a.Name, Type: a.Type, Description: a.Description, Required: !a.Optional}
	}
	parameters := util.ObjectSchema(props)

	schema, err := util.CompileSchema(name, parameters)
	if err != nil {
		return nil, fmt.Errorf("compile arguments of %s: %w", name, err)
	}

	return &FunctionAction{
		name:        name,
		description: description,
		arguments:   append([]Argument(nil), args...),
		parameters:  parameters,
		schema:      schema,
		fn:          fn,
		logger:      logging.OrNoOp(opts.Logger),
	}, nil
}

// MustFunctionAction is like NewFunctionAction but panics on error. Intended
// for package-level declarations with static argument lists.
func MustFunctionAction(name, description string, args []Argument, fn Handler, optFns ...func(o *FunctionOptions)) *FunctionAction {
	a, err := NewFunctionAction(name, description, args, fn, optFns...)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the action name.
func (a *FunctionAction) Name() string { return a.name }

// Description returns the natural language description exposed to planners.
func (a *FunctionAction) Description() string { return a.description }

// Arguments returns a copy of the declared arguments.
func (a *FunctionAction) Arguments() []Argument { return append([]Argument(nil), a.arguments...) }

// Parameters returns the JSON schema describing expected arguments.
func (a *FunctionAction) Parameters() map[string]any { return a.parameters }

// Call validates args against the declared schema then invokes the handler.
func (a *FunctionAction) Call(ctx context.Context, args map[string]any) (core.ActionOutcome, error) {
	start := time.Now()

	a.logger.Debug("action.call.start", "action", a.name)

	if err := util.ValidateParameters(args, a.schema); err != nil {
		a.logger.Warn("action.call.validation_failed", "action", a.name, "error", err.Error())

		return core.ActionOutcome{}, &ActionError{
			Action:  a.name,
			Message: fmt.Sprintf("argument validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	outcome, err := a.fn(ctx, Args(args))
	if err != nil {
		if actErr, ok := err.(*ActionError); ok {
			a.logger.Error("action.call.error", "action", a.name, "error", actErr.Message)

			return core.ActionOutcome{}, actErr
		}

		a.logger.Error("action.call.error", "action", a.name, "error", err.Error())

		return core.ActionOutcome{}, &ActionError{
			Action:  a.name,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}

	a.logger.Info("action.call.success", "action", a.name, "status", outcome.Status.String(), "duration_ms", time.Since(start).Milliseconds())

	return outcome, nil
}
