package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/engine"
)

// ErrRunNotFound is returned for run ids the store has never seen.
var ErrRunNotFound = errors.New("run not found")

// Run is a snapshot of one recorded run.
type Run struct {
	ID        string                `json:"id"`
	Events    []core.RoundEvent     `json:"events"`
	State     *core.SimulationState `json:"state"`
	StartedAt time.Time             `json:"started_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Clone returns a deep copy safe for independent mutation.
func (r *Run) Clone() *Run {
	c := *r
	c.Events = make([]core.RoundEvent, len(r.Events))
	for i, ev := range r.Events {
		ev.State = ev.State.Clone()
		c.Events[i] = ev
	}
	c.State = r.State.Clone()
	return &c
}

// Options configures an InMemoryStore.
type Options struct {
	// MaxEvents bounds the events kept per run; the oldest are dropped
	// first. Zero keeps everything.
	MaxEvents int
}

// InMemoryStore is a volatile run history. It is safe for concurrent access;
// every returned value is a clone.
type InMemoryStore struct {
	maxEvents int

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{maxEvents: opts.MaxEvents, runs: make(map[string]*Run)}
}

// Append records a round event; the run is created lazily and its latest
// state follows the event snapshot.
func (s *InMemoryStore) Append(ev core.RoundEvent) error {
	if ev.RunID == "" {
		return errors.New("round event without run id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[ev.RunID]
	if !ok {
		run = &Run{ID: ev.RunID, StartedAt: ev.Timestamp}
		s.runs[ev.RunID] = run
	}

	ev.State = ev.State.Clone()
	run.Events = append(run.Events, ev)
	if s.maxEvents > 0 && len(run.Events) > s.maxEvents {
		run.Events = slices.Clone(run.Events[len(run.Events)-s.maxEvents:])
	}
	run.State = ev.State.Clone()
	run.UpdatedAt = ev.Timestamp

	return nil
}

// Get returns a run.
func (s *InMemoryStore) Get(runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}

	return run.Clone(), nil
}

// Events returns the events of a run with a round number greater than
// afterRound.
func (s *InMemoryStore) Events(runID string, afterRound int) ([]core.RoundEvent, error) {
	run, err := s.Get(runID)
	if err != nil {
		return nil, err
	}

	i, _ := slices.BinarySearchFunc(run.Events, afterRound+1, func(ev core.RoundEvent, round int) int {
		return ev.Round - round
	})

	return run.Events[i:], nil
}

// Latest returns the state after the most recent round of a run.
func (s *InMemoryStore) Latest(runID string) (*core.SimulationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}

	return run.State.Clone(), nil
}

// Runs lists the known run ids, most recently updated first.
func (s *InMemoryStore) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b *Run) int { return b.UpdatedAt.Compare(a.UpdatedAt) })

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}

	return ids
}

// Delete forgets a run.
func (s *InMemoryStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, runID)
}

// Callback records every completed round of an engine.
func (s *InMemoryStore) Callback() engine.Callback {
	return engine.NewFunctionCallback(engine.CallbackAfterRound, func(_ context.Context, cc *engine.CallbackContext) error {
		if cc.Event == nil {
			return nil
		}
		return s.Append(*cc.Event)
	})
}
