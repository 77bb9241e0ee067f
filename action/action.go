// Package action implements the action registration contract through which
// workers expose capabilities (move a prop, trigger an effect) to whatever
// drives the simulation. Each action declares a name, a description shown to
// planners, a typed argument list and an executable entry point producing a
// core.ActionOutcome.
package action

import (
	"context"
	"fmt"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/internal/util"
)

// Argument type names accepted in Argument.Type.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Argument declares one named, typed action parameter.
type Argument struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Action is an executable capability of a worker.
//
// Implementations should:
//   - Provide a snake_case name unique within the owning worker
//   - Describe the effect in one imperative sentence
//   - Produce outcomes deterministically from the arguments alone
type Action interface {
	// Name returns the identifier used in decisions and tool calls.
	Name() string

	// Description returns a human-readable description for planners.
	Description() string

	// Arguments returns the declared parameter list.
	Arguments() []Argument

	// Parameters returns the JSON schema derived from Arguments.
	Parameters() map[string]any

	// Call validates args and executes the action.
	Call(ctx context.Context, args map[string]any) (core.ActionOutcome, error)
}

// ValidationError represents argument validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ActionError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ActionError represents errors that occur during action execution.
type ActionError struct {
	Action  string `json:"action"`            // Name of the action that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ActionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Action, e.Message)
}

// NewActionError creates a new ActionError with the specified details.
func NewActionError(action, message, code string) *ActionError {
	return &ActionError{
		Action:  action,
		Message: message,
		Code:    code,
	}
}

// Args is a convenience view over validated arguments.
type Args map[string]any

// String returns the named string argument or def when absent or mistyped.
func (a Args) String(name, def string) string {
	if s, ok := a[name].(string); ok {
		return s
	}
	return def
}

// Int returns the named integer argument or def when absent or mistyped.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
