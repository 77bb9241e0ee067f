package hauntedhouse

import (
	"fmt"

	"github.com/hupe1980/hauntmesh/core"
)

// Points awarded by a sound effect.
const (
	SoundScarePoints  = 3
	SoundStressPoints = 2
)

// MoveGhost relocates the ghost prop.
func MoveGhost(location string) core.ActionOutcome {
	return core.Done(fmt.Sprintf("Ghost moved to %s!", location), core.Payload{
		Action:   core.ActionMoveGhost,
		Location: core.String(location),
	})
}

// TriggerSoundFX plays a sound effect. It is the only scoring action.
func TriggerSoundFX(effect string) core.ActionOutcome {
	return core.Done(fmt.Sprintf("Sound effect '%s' triggered!", effect), core.Payload{
		Action:       core.ActionScareGuest,
		ScarePoints:  core.Int(SoundScarePoints),
		StressPoints: core.Int(SoundStressPoints),
		Effect:       effect,
	})
}

// TriggerFog activates the fog machine.
func TriggerFog() core.ActionOutcome {
	return core.Done("Fog machine activated!", core.Payload{Action: core.ActionTriggerFog})
}
