package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/internal/util"
	"github.com/hupe1980/hauntmesh/logging"
	"github.com/hupe1980/hauntmesh/model"
)

// ToolSeparator joins worker id and action name into a tool name.
const ToolSeparator = "__"

// DefaultSystemTemplate renders the system prompt from the situation.
const DefaultSystemTemplate = `You are {{.AgentName}}.
{{.Description}}

Goal: {{.Goal}}

Each tool is named <worker>__<action>. Call exactly one tool per round.`

// DefaultStateTemplate renders the per-round user message.
const DefaultStateTemplate = `Round {{.Round}}.
Scare score: {{.Agent.ScareScore}}, guest stress level: {{.Agent.GuestStressLevel}}.
Workers:
{{range .Workers}}- {{.ID}}: {{.Description}} resources={{json .Resources}}{{if .Attributes}} attributes={{json .Attributes}}{{end}}
{{end}}{{if .LastWorker}}The previous round used {{.LastWorker}}. Pick a different worker.
{{end}}Which worker acts next?`

// ModelSelectorOptions configures a ModelSelector.
type ModelSelectorOptions struct {
	// Fallback decides when the model fails. Defaults to a RoundRobin.
	Fallback engine.Selector
	// MaxDecisions caps model calls per run. Zero means unlimited.
	MaxDecisions int
	// SystemTemplate and StateTemplate are text/template sources rendered
	// against the situation.
	SystemTemplate string
	StateTemplate  string
	// Logger receives selector.* records.
	Logger logging.Logger
}

// ModelSelector asks a model to pick the next worker action. Every action is
// exposed as a tool named <worker>__<action>; the first function call of the
// reply is the decision and any text in the reply becomes its reasoning.
//
// Whenever the model cannot produce a valid decision (transport error, no
// tool call, unknown tool, repeated worker, exhausted decision budget) the
// fallback selector decides instead and a warning is logged.
type ModelSelector struct {
	model    model.Model
	fallback engine.Selector
	limiter  *core.DecisionLimiter
	system   string
	state    string
	logger   logging.Logger
}

// NewModelSelector creates a selector backed by m.
func NewModelSelector(m model.Model, optFns ...func(o *ModelSelectorOptions)) *ModelSelector {
	opts := ModelSelectorOptions{
		SystemTemplate: DefaultSystemTemplate,
		StateTemplate:  DefaultStateTemplate,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Fallback == nil {
		opts.Fallback = NewRoundRobin(func(o *RoundRobinOptions) { o.Logger = opts.Logger })
	}

	return &ModelSelector{
		model:    m,
		fallback: opts.Fallback,
		limiter:  core.NewDecisionLimiter(opts.MaxDecisions),
		system:   opts.SystemTemplate,
		state:    opts.StateTemplate,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Limiter exposes the decision budget, e.g. to Reset it between runs.
func (s *ModelSelector) Limiter() *core.DecisionLimiter { return s.limiter }

// Select implements engine.Selector.
func (s *ModelSelector) Select(ctx context.Context, sit engine.Situation) (engine.Decision, error) {
	start := time.Now()

	d, err := s.ask(ctx, sit)
	s.logDecision(d, time.Since(start), err)

	if err == nil {
		return d, nil
	}

	if ctx.Err() != nil {
		return engine.Decision{}, ctx.Err()
	}

	s.logger.Warn("selector.model.fallback", "round", sit.Round, "model", s.model.Info().Name, "error", err.Error())

	return s.fallback.Select(ctx, sit)
}

func (s *ModelSelector) ask(ctx context.Context, sit engine.Situation) (engine.Decision, error) {
	workers := candidates(sit)
	if len(workers) == 0 {
		return engine.Decision{}, ErrNoCandidates
	}

	if err := s.limiter.Increment(); err != nil {
		return engine.Decision{}, err
	}

	data := newPromptData(sit)

	system, err := util.RenderTemplate(s.system, data)
	if err != nil {
		return engine.Decision{}, err
	}

	prompt, err := util.RenderTemplate(s.state, data)
	if err != nil {
		return engine.Decision{}, err
	}

	resp, err := model.Collect(ctx, s.model, model.Request{
		Instructions: system,
		Contents:     []core.Content{core.NewTextContent("user", prompt)},
		Tools:        Tools(workers),
		ToolChoice:   model.ToolChoiceRequired,
	})
	if err != nil {
		return engine.Decision{}, fmt.Errorf("generate: %w", err)
	}

	calls := resp.Content.FunctionCalls()
	if len(calls) == 0 {
		return engine.Decision{}, ErrNoToolCall
	}

	d, err := parseCall(calls[0], sit)
	if err != nil {
		return engine.Decision{}, err
	}

	d.Reasoning = strings.TrimSpace(resp.Content.Text())

	return d, nil
}

func (s *ModelSelector) logDecision(d engine.Decision, dur time.Duration, err error) {
	type decisionLogger interface {
		LogDecision(selector, worker, action string, dur time.Duration, err error)
	}

	if dl, ok := s.logger.(decisionLogger); ok {
		dl.LogDecision("model", d.Worker.String(), d.Action, dur, err)
		return
	}

	if err != nil {
		s.logger.Debug("selector.decision.failed", "selector", "model", "error", err.Error())
		return
	}
	s.logger.Debug("selector.decision", "selector", "model", "worker", d.Worker.String(), "action", d.Action)
}

// ToolName joins a worker id and an action name.
func ToolName(worker core.WorkerID, action string) string {
	return worker.String() + ToolSeparator + action
}

// Tools exposes every action of the given workers as a model tool.
func Tools(workers []engine.Worker) []model.ToolDefinition {
	var tools []model.ToolDefinition
	for _, w := range workers {
		for _, a := range w.Actions {
			desc := a.Description()
			if w.Description != "" {
				desc = fmt.Sprintf("%s (%s: %s)", desc, w.ID, w.Description)
			}
			tools = append(tools, model.NewToolDefinition(ToolName(w.ID, a.Name()), desc, a.Parameters()))
		}
	}
	return tools
}

func parseCall(fc core.FunctionCall, sit engine.Situation) (engine.Decision, error) {
	workerID, actionName, ok := strings.Cut(fc.Name, ToolSeparator)
	if !ok {
		return engine.Decision{}, fmt.Errorf("%w: %q", ErrUnknownTool, fc.Name)
	}

	var worker *engine.Worker
	for i := range sit.Workers {
		if sit.Workers[i].ID == core.WorkerID(workerID) {
			worker = &sit.Workers[i]
			break
		}
	}
	if worker == nil {
		return engine.Decision{}, fmt.Errorf("%w: %q", ErrUnknownTool, fc.Name)
	}
	if _, ok := worker.Action(actionName); !ok {
		return engine.Decision{}, fmt.Errorf("%w: %q", ErrUnknownTool, fc.Name)
	}

	if worker.ID == sit.LastWorker && !slices.ContainsFunc(candidates(sit), func(w engine.Worker) bool { return w.ID == worker.ID }) {
		return engine.Decision{}, fmt.Errorf("%w: %s", ErrRepeatedWorker, worker.ID)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(fc.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return engine.Decision{}, fmt.Errorf("decode arguments of %s: %w", fc.Name, err)
		}
	}

	return engine.Decision{Worker: worker.ID, Action: actionName, Args: args}, nil
}

type workerView struct {
	ID          string
	Description string
	Resources   map[string]int
	Attributes  map[string]string
	Actions     []string
}

type promptData struct {
	AgentName   string
	Goal        string
	Description string
	Round       int
	LastWorker  string
	Agent       core.AgentState
	Workers     []workerView
}

func newPromptData(sit engine.Situation) promptData {
	data := promptData{
		AgentName:   sit.AgentName,
		Goal:        sit.Goal,
		Description: sit.Description,
		Round:       sit.Round,
		LastWorker:  sit.LastWorker.String(),
	}
	if sit.State != nil {
		data.Agent = sit.State.Agent
	}

	for _, w := range sit.Workers {
		view := workerView{ID: w.ID.String(), Description: w.Description, Actions: w.ActionNames()}
		if ws := sit.State.Worker(w.ID); ws != nil {
			view.Resources = ws.Resources
			view.Attributes = ws.Attributes
		}
		data.Workers = append(data.Workers, view)
	}

	return data
}
