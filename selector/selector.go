// Package selector provides engine.Selector implementations: a deterministic
// RoundRobin and a ModelSelector that lets a language model pick the next
// worker action through tool calling.
package selector

import (
	"errors"

	"github.com/hupe1980/hauntmesh/action"
	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/engine"
)

var (
	// ErrNoCandidates is returned when a situation offers no worker with actions.
	ErrNoCandidates = errors.New("no candidate workers")
	// ErrNoToolCall is returned when a model answers without calling a tool.
	ErrNoToolCall = errors.New("model did not call a tool")
	// ErrUnknownTool is returned when a model calls a tool that maps to no
	// worker action.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrRepeatedWorker is returned when a model picks the previous worker
	// again although others are available.
	ErrRepeatedWorker = errors.New("worker repeated")
)

// candidates returns the workers that may act this round: every worker with
// at least one action, minus the previous worker when another is available.
func candidates(sit engine.Situation) []engine.Worker {
	var all, fresh []engine.Worker
	for _, w := range sit.Workers {
		if len(w.Actions) == 0 {
			continue
		}
		all = append(all, w)
		if w.ID != sit.LastWorker {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		return all
	}
	return fresh
}

// zeroValue is the argument used when no candidate value is configured.
func zeroValue(arg action.Argument) any {
	switch arg.Type {
	case action.TypeInteger, action.TypeNumber:
		return 0
	case action.TypeBoolean:
		return false
	default:
		return core.Unknown
	}
}
