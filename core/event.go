package core

import (
	"time"

	"github.com/google/uuid"
)

// RoundEvent records one orchestrated round: which worker acted, what it
// produced and the simulation state after both callbacks ran. After emission it
// should be treated as immutable; State is always a private clone.
type RoundEvent struct {
	ID        string           `json:"id"`
	RunID     string           `json:"run_id"`
	Round     int              `json:"round"`
	Worker    WorkerID         `json:"worker"`
	Action    string           `json:"action"`
	Args      map[string]any   `json:"args,omitempty"`
	Reasoning string           `json:"reasoning,omitempty"`
	Outcome   ActionOutcome    `json:"outcome"`
	State     *SimulationState `json:"state"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewRoundEvent creates an event for the given run and round with a fresh ID
// and a UTC timestamp.
func NewRoundEvent(runID string, round int, worker WorkerID, action string) RoundEvent {
	return RoundEvent{
		ID:        NewID(),
		RunID:     runID,
		Round:     round,
		Worker:    worker,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for runs, events and tool calls.
func NewID() string { return uuid.NewString() }

// Succeeded reports whether the round's action completed.
func (e RoundEvent) Succeeded() bool { return e.Outcome.Status == StatusDone }
