package testutil

import (
	"github.com/hupe1980/hauntmesh/core"
)

// OutcomeBuilder provides a fluent helper for constructing action outcomes.
// Example:
//
//	o := NewOutcomeBuilder(core.ActionScareGuest).Points(3, 2).Build()
type OutcomeBuilder struct {
	outcome core.ActionOutcome
}

// NewOutcomeBuilder creates a successful outcome builder for the given tag.
func NewOutcomeBuilder(tag core.ActionTag) *OutcomeBuilder {
	return &OutcomeBuilder{outcome: core.ActionOutcome{Status: core.StatusDone, Message: tag.String(), Payload: core.Payload{Action: tag}}}
}

// Failed marks the outcome as failed (chainable).
func (b *OutcomeBuilder) Failed() *OutcomeBuilder { b.outcome.Status = core.StatusFailed; return b }

// Location sets the payload location (chainable).
func (b *OutcomeBuilder) Location(loc string) *OutcomeBuilder {
	b.outcome.Payload.Location = core.String(loc)
	return b
}

// Points sets the scare and stress deltas (chainable).
func (b *OutcomeBuilder) Points(scare, stress int) *OutcomeBuilder {
	b.outcome.Payload.ScarePoints = core.Int(scare)
	b.outcome.Payload.StressPoints = core.Int(stress)
	return b
}

// Build returns a pointer to a copy of the outcome.
func (b *OutcomeBuilder) Build() *core.ActionOutcome {
	o := b.outcome
	return &o
}
