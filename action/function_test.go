package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hauntmesh/core"
)

func newEcho(t *testing.T, fn Handler) *FunctionAction {
	t.Helper()
	a, err := NewFunctionAction("echo", "Echo the location", []Argument{
		{Name: "location", Type: TypeString, Description: "Where"},
		{Name: "times", Type: TypeInteger, Description: "How often", Optional: true},
	}, fn)
	require.NoError(t, err)
	return a
}

func TestFunctionAction_Success(t *testing.T) {
	a := newEcho(t, func(_ context.Context, args Args) (core.ActionOutcome, error) {
		return core.Done("ok", core.Payload{Action: core.ActionMoveGhost, Location: core.String(args.String("location", core.Unknown))}), nil
	})

	out, err := a.Call(context.Background(), map[string]any{"location": "attic", "times": 2})
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, out.Status)
	assert.Equal(t, "attic", out.Payload.LocationOrUnknown())
}

func TestFunctionAction_ValidationError(t *testing.T) {
	called := false
	a := newEcho(t, func(context.Context, Args) (core.ActionOutcome, error) {
		called = true
		return core.ActionOutcome{}, nil
	})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{}},
		{"wrong type", map[string]any{"location": 7}},
		{"unknown argument", map[string]any{"location": "attic", "volume": 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Call(context.Background(), tt.args)
			require.Error(t, err)

			var actErr *ActionError
			require.True(t, errors.As(err, &actErr))
			assert.Equal(t, CodeValidation, actErr.Code)
			assert.Equal(t, "echo", actErr.Action)
		})
	}
	assert.False(t, called)
}

func TestFunctionAction_ExecutionError(t *testing.T) {
	a := newEcho(t, func(context.Context, Args) (core.ActionOutcome, error) {
		return core.ActionOutcome{}, errors.New("fog fluid pump stuck")
	})

	_, err := a.Call(context.Background(), map[string]any{"location": "hall"})
	var actErr *ActionError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, CodeExecution, actErr.Code)
	assert.Contains(t, actErr.Error(), "fog fluid pump stuck")
}

func TestFunctionAction_PassesThroughActionError(t *testing.T) {
	custom := NewActionError("echo", "prop offline", "PROP_OFFLINE")
	a := newEcho(t, func(context.Context, Args) (core.ActionOutcome, error) {
		return core.ActionOutcome{}, custom
	})

	_, err := a.Call(context.Background(), map[string]any{"location": "hall"})
	assert.Same(t, custom, err)
}

func TestFunctionAction_NoArguments(t *testing.T) {
	a := MustFunctionAction("noop", "Do nothing", nil, func(context.Context, Args) (core.ActionOutcome, error) {
		return core.Done("done", core.Payload{}), nil
	})

	_, err := a.Call(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, a.Arguments())
	assert.Equal(t, "object", a.Parameters()["type"])
}

func TestArgs(t *testing.T) {
	args := Args{"s": "x", "i": 3, "f": 4.0, "bad": true}
	assert.Equal(t, "x", args.String("s", "d"))
	assert.Equal(t, "d", args.String("i", "d"))
	assert.Equal(t, 3, args.Int("i", 0))
	assert.Equal(t, 4, args.Int("f", 0))
	assert.Equal(t, 9, args.Int("bad", 9))
}

func TestActionError_Error(t *testing.T) {
	assert.Equal(t, "action error [X] in a: m", NewActionError("a", "m", "X").Error())
	assert.Equal(t, "action error in a: m", (&ActionError{Action: "a", Message: "m"}).Error())
}
