package hauntedhouse

import (
	"context"

	"github.com/hupe1980/hauntmesh/action"
	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/logging"
)

// Action names exposed by the haunted house workers.
const (
	MoveGhostAction      = "move_ghost"
	TriggerSoundFXAction = "trigger_sound_fx"
	TriggerFogAction     = "trigger_fog"
)

// Argument candidates used by deterministic selectors.
var (
	Locations = []any{"attic", "hallway", "basement"}
	Effects   = []any{"chains", "scream", "creak"}
)

// ArgumentPool maps argument names to the values a deterministic selector
// cycles through.
func ArgumentPool() map[string][]any {
	return map[string][]any{
		"location": Locations,
		"effect":   Effects,
	}
}

// NewMoveGhostAction declares move_ghost.
func NewMoveGhostAction(logger logging.Logger) action.Action {
	return action.MustFunctionAction(
		MoveGhostAction,
		"Move the ghost to a new location",
		[]action.Argument{{Name: "location", Type: action.TypeString, Description: "Location to move the ghost to"}},
		func(_ context.Context, args action.Args) (core.ActionOutcome, error) {
			return MoveGhost(args.String("location", core.Unknown)), nil
		},
		withLogger(logger),
	)
}

// NewTriggerSoundFXAction declares trigger_sound_fx.
func NewTriggerSoundFXAction(logger logging.Logger) action.Action {
	return action.MustFunctionAction(
		TriggerSoundFXAction,
		"Trigger a spooky sound effect",
		[]action.Argument{{Name: "effect", Type: action.TypeString, Description: "Type of sound effect to play"}},
		func(_ context.Context, args action.Args) (core.ActionOutcome, error) {
			return TriggerSoundFX(args.String("effect", core.Unknown)), nil
		},
		withLogger(logger),
	)
}

// NewTriggerFogAction declares trigger_fog.
func NewTriggerFogAction(logger logging.Logger) action.Action {
	return action.MustFunctionAction(
		TriggerFogAction,
		"Trigger the fog machine",
		nil,
		func(context.Context, action.Args) (core.ActionOutcome, error) {
			return TriggerFog(), nil
		},
		withLogger(logger),
	)
}

// ActionsFor returns the action space of a worker kind.
func ActionsFor(kind core.WorkerKind, logger logging.Logger) []action.Action {
	switch kind {
	case core.KindGhostPerformer:
		return []action.Action{NewMoveGhostAction(logger)}
	case core.KindSoundFXOperator:
		return []action.Action{NewTriggerSoundFXAction(logger)}
	case core.KindFogMachineTech:
		return []action.Action{NewTriggerFogAction(logger)}
	default:
		return nil
	}
}

func withLogger(logger logging.Logger) func(o *action.FunctionOptions) {
	return func(o *action.FunctionOptions) { o.Logger = logging.OrNoOp(logger) }
}
