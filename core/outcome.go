package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
)

// Status reports whether a worker action completed.
type Status int

const (
	// StatusDone marks a successful action.
	StatusDone Status = iota
	// StatusFailed marks an action that did not take effect.
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "done":
		*s = StatusDone
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// ActionTag is the closed set of action kinds an outcome payload can carry.
type ActionTag string

const (
	// ActionUnknown is used for missing or unrecognised tags.
	ActionUnknown ActionTag = ""
	// ActionMoveGhost relocates the ghost prop.
	ActionMoveGhost ActionTag = "move_ghost"
	// ActionScareGuest is a scoring scare event.
	ActionScareGuest ActionTag = "scare_guest"
	// ActionTriggerFog activates the fog machine.
	ActionTriggerFog ActionTag = "trigger_fog"
)

// legacyFogTag is the tag older fog handlers emitted. It is accepted as an
// alias of ActionTriggerFog.
const legacyFogTag = "fog_fluid_level"

// ParseActionTag maps a raw tag to the closed enumeration. Unrecognised values
// yield ActionUnknown.
func ParseActionTag(s string) ActionTag {
	switch s {
	case string(ActionMoveGhost):
		return ActionMoveGhost
	case string(ActionScareGuest):
		return ActionScareGuest
	case string(ActionTriggerFog), legacyFogTag:
		return ActionTriggerFog
	default:
		return ActionUnknown
	}
}

// String implements fmt.Stringer.
func (t ActionTag) String() string {
	if t == ActionUnknown {
		return Unknown
	}
	return string(t)
}

// Payload is the structured description of what an action did. Optional
// fields are pointers so absence is distinguishable from zero.
type Payload struct {
	Action       ActionTag      `json:"action"`
	Location     *string        `json:"location,omitempty"`
	ScarePoints  *int           `json:"scare_points,omitempty"`
	StressPoints *int           `json:"stress_points,omitempty"`
	Effect       string         `json:"effect,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// LocationOrUnknown returns the location or Unknown when absent.
func (p Payload) LocationOrUnknown() string {
	if p.Location == nil {
		return Unknown
	}
	return *p.Location
}

// ScareDelta returns the scare-point delta, zero when absent.
func (p Payload) ScareDelta() int {
	if p.ScarePoints == nil {
		return 0
	}
	return *p.ScarePoints
}

// StressDelta returns the stress-point delta, zero when absent.
func (p Payload) StressDelta() int {
	if p.StressPoints == nil {
		return 0
	}
	return *p.StressPoints
}

// Map renders the payload as a loose key/value mapping using the wire key set
// (action, location, scare_points, stress_points, effect).
func (p Payload) Map() map[string]any {
	m := make(map[string]any, len(p.Extra)+5)
	maps.Copy(m, p.Extra)
	m["action"] = p.Action.String()
	if p.Location != nil {
		m["location"] = *p.Location
	}
	if p.ScarePoints != nil {
		m["scare_points"] = *p.ScarePoints
	}
	if p.StressPoints != nil {
		m["stress_points"] = *p.StressPoints
	}
	if p.Effect != "" {
		m["effect"] = p.Effect
	}
	return m
}

// PayloadFromMap decodes a loose mapping into a Payload. Malformed or missing
// fields degrade to their defaults instead of failing: unknown tags become
// ActionUnknown, non-numeric deltas are dropped, non-string locations are
// ignored. Unrecognised keys are kept in Extra.
func PayloadFromMap(m map[string]any) Payload {
	var p Payload
	for k, v := range m {
		switch k {
		case "action":
			if s, ok := v.(string); ok {
				p.Action = ParseActionTag(s)
			}
		case "location":
			if s, ok := v.(string); ok {
				p.Location = &s
			}
		case "scare_points":
			if n, ok := toInt(v); ok {
				p.ScarePoints = &n
			}
		case "stress_points":
			if n, ok := toInt(v); ok {
				p.StressPoints = &n
			}
		case "effect":
			if s, ok := v.(string); ok {
				p.Effect = s
			}
		default:
			if p.Extra == nil {
				p.Extra = map[string]any{}
			}
			p.Extra[k] = v
		}
	}
	return p
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// ActionOutcome is the result of one worker action.
type ActionOutcome struct {
	Status  Status  `json:"status"`
	Message string  `json:"message"`
	Payload Payload `json:"payload"`
}

// Done builds a successful outcome.
func Done(message string, payload Payload) ActionOutcome {
	return ActionOutcome{Status: StatusDone, Message: message, Payload: payload}
}

// Failed builds a failed outcome carrying only a message.
func Failed(message string) ActionOutcome {
	return ActionOutcome{Status: StatusFailed, Message: message}
}

// Succeeded reports whether the outcome is present and done.
func (o *ActionOutcome) Succeeded() bool { return o != nil && o.Status == StatusDone }

// Int returns a pointer to n. Convenience for building payloads.
func Int(n int) *int { return &n }

// String returns a pointer to s. Convenience for building payloads.
func String(s string) *string { return &s }
