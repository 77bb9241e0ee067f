// Package hauntmesh provides a high-level façade over the round engine and its
// companions (run history, metrics, tracing and the live event stream) for
// running a haunted house simulation. Most applications interact with this
// package by:
//  1. Loading Settings from the environment (scenario.LoadSettings)
//  2. Creating a HauntMesh via New() or NewFromEnv()
//  3. Calling Run, which plays the configured rounds and serves /ws and
//     /metrics while it does
//
// The façade delegates orchestration to engine.Engine. All defaults are safe
// for local development: the built-in scenario, a round robin selector, an
// in-memory history and a private Prometheus registry.
package hauntmesh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/hauntedhouse"
	"github.com/hupe1980/hauntmesh/history"
	"github.com/hupe1980/hauntmesh/logging"
	"github.com/hupe1980/hauntmesh/model"
	"github.com/hupe1980/hauntmesh/model/anthropic"
	"github.com/hupe1980/hauntmesh/model/openai"
	"github.com/hupe1980/hauntmesh/scenario"
	"github.com/hupe1980/hauntmesh/selector"
	"github.com/hupe1980/hauntmesh/stream"
	"github.com/hupe1980/hauntmesh/telemetry"
)

// ServiceName is reported as service.name on metrics and traces.
const ServiceName = "hauntmesh"

// Options configures the HauntMesh instance.
type Options struct {
	// Settings carries the process level configuration. Defaults to
	// scenario.DefaultSettings().
	Settings scenario.Settings

	// Scenario overrides Settings.ScenarioFile and the built-in scenario.
	Scenario *scenario.Scenario

	// Model overrides the provider named in Settings.
	Model model.Model

	// Selector overrides the model and round robin selectors entirely.
	Selector engine.Selector

	// History records every round (defaults to an in-memory store).
	History *history.InMemoryStore

	// MeterProvider receives round metrics. When nil a provider exporting to
	// a private Prometheus registry is created and served on /metrics.
	MeterProvider metric.MeterProvider

	// TracerProvider receives one span per round. When nil and
	// Settings.TraceConsole is set, spans are printed to stdout.
	TracerProvider trace.TracerProvider

	// Callbacks are registered on the engine after the built-in observers.
	Callbacks []engine.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// HauntMesh is the high-level façade aggregating the engine and its services.
type HauntMesh struct {
	opts     Options
	scenario *scenario.Scenario
	engine   *engine.Engine
	selector engine.Selector
	history  *history.InMemoryStore
	hub      *stream.Hub
	metrics  *telemetry.Metrics
	tracing  *sdktrace.TracerProvider
	logger   logging.Logger

	hubOnce   sync.Once
	hubCancel context.CancelFunc
}

// New creates a new HauntMesh. Any unset service is initialised with its
// default.
func New(optFns ...func(o *Options)) (*HauntMesh, error) {
	opts := Options{
		Settings: scenario.DefaultSettings(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	settings := opts.Settings

	sc := opts.Scenario
	if sc == nil {
		sc = scenario.Default()
		if settings.ScenarioFile != "" {
			var err error
			if sc, err = scenario.Load(settings.ScenarioFile); err != nil {
				return nil, err
			}
		}
	}

	agent, err := hauntedhouse.NewAgent(sc, func(o *hauntedhouse.Options) { o.Logger = logger })
	if err != nil {
		return nil, err
	}

	sel, err := newSelector(opts, logger)
	if err != nil {
		return nil, err
	}

	hm := &HauntMesh{
		opts:     opts,
		scenario: sc,
		selector: sel,
		history:  opts.History,
		hub:      stream.NewHub(func(o *stream.HubOptions) { o.Logger = logger }),
		logger:   logger,
	}
	if hm.history == nil {
		hm.history = history.NewInMemoryStore()
	}

	meterProvider := opts.MeterProvider
	if meterProvider == nil {
		if hm.metrics, err = telemetry.InitMetrics(ServiceName); err != nil {
			return nil, err
		}
		meterProvider = hm.metrics.Provider
	}

	recorder, err := telemetry.NewRecorder(meterProvider)
	if err != nil {
		return nil, err
	}

	tracerProvider := opts.TracerProvider
	if tracerProvider == nil && settings.TraceConsole {
		if hm.tracing, err = telemetry.InitTracing(ServiceName, func(o *telemetry.TracingOptions) {
			o.Console = true
			o.Writer = os.Stdout
		}); err != nil {
			return nil, err
		}
		tracerProvider = hm.tracing
	}

	callbacks := engine.NewCallbackManager()
	callbacks.RegisterCallback(hm.history.Callback(), hm.hub.Callback())
	callbacks.RegisterCallback(recorder.Callbacks()...)
	callbacks.RegisterCallback(opts.Callbacks...)

	hm.engine, err = engine.New(agent, func(o *engine.Options) {
		o.Selector = sel
		o.Callbacks = callbacks
		o.MaxRounds = settings.Rounds
		o.Interval = settings.Interval
		o.DecisionTimeout = settings.DecisionTimeout
		o.Logger = logger
		if tracerProvider != nil {
			o.Tracer = telemetry.Tracer(tracerProvider)
		}
	})
	if err != nil {
		return nil, err
	}

	return hm, nil
}

// NewFromEnv reads Settings through getenv (os.Getenv when nil), builds the
// logger they describe and creates a HauntMesh.
func NewFromEnv(getenv func(string) string, optFns ...func(o *Options)) (*HauntMesh, error) {
	settings, err := scenario.LoadSettings(getenv)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}

	return New(append([]func(o *Options){func(o *Options) {
		o.Settings = settings
		o.Logger = logging.NewSlogLogger(level, settings.LogFormat, false).WithComponent("hauntmesh")
	}}, optFns...)...)
}

// NewModel creates the model adapter named by the settings. It returns nil
// for the none provider.
func NewModel(settings scenario.Settings) (model.Model, error) {
	switch settings.Provider {
	case "", scenario.ProviderNone:
		return nil, nil
	case scenario.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = settings.APIKey
			if settings.Model != "" {
				o.Model = sdkanthropic.Model(settings.Model)
			}
		}), nil
	case scenario.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = settings.APIKey
			if settings.Model != "" {
				o.Model = settings.Model
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", settings.Provider)
	}
}

func newSelector(opts Options, logger logging.Logger) (engine.Selector, error) {
	if opts.Selector != nil {
		return opts.Selector, nil
	}

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(opts.Settings); err != nil {
			return nil, err
		}
	}

	roundRobin := selector.NewRoundRobin(func(o *selector.RoundRobinOptions) {
		o.Values = hauntedhouse.ArgumentPool()
		o.Logger = logger
	})
	if m == nil {
		return roundRobin, nil
	}

	return selector.NewModelSelector(m, func(o *selector.ModelSelectorOptions) {
		o.Fallback = roundRobin
		o.MaxDecisions = opts.Settings.MaxDecisions
		o.Logger = logger
	}), nil
}

// Engine returns the underlying round engine.
func (h *HauntMesh) Engine() *engine.Engine { return h.engine }

// Scenario returns the scenario being played.
func (h *HauntMesh) Scenario() *scenario.Scenario { return h.scenario }

// History returns the run history.
func (h *HauntMesh) History() *history.InMemoryStore { return h.history }

// Hub returns the event stream hub.
func (h *HauntMesh) Hub() *stream.Hub { return h.hub }

// Handler returns the HTTP routes: /ws, /runs and, when the façade owns the
// meter provider, /metrics. It starts the event hub.
func (h *HauntMesh) Handler() http.Handler {
	h.startHub()
	return h.server().Handler()
}

func (h *HauntMesh) server() *stream.Server {
	return stream.NewServer(h.hub, func(o *stream.ServerOptions) {
		o.History = h.history
		o.Logger = h.logger
		if h.metrics != nil {
			o.Metrics = h.metrics.Handler()
		}
	})
}

// Run plays Settings.Rounds rounds (until ctx is done when zero). The event
// hub is started on first use and stops with Shutdown; when
// Settings.ListenAddr is set the HTTP routes are served for the duration of
// the call and a server failure stops the rounds. Each call starts with a
// fresh model decision budget.
func (h *HauntMesh) Run(ctx context.Context) (*engine.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.startHub()

	if ms, ok := h.selector.(*selector.ModelSelector); ok {
		ms.Limiter().Reset()
	}

	serveErr := make(chan error, 1)
	if addr := h.opts.Settings.ListenAddr; addr != "" {
		srv := h.server()
		go func() {
			err := srv.ListenAndServe(ctx, addr)
			if err != nil {
				cancel()
			}
			serveErr <- err
		}()
	}

	result, err := h.engine.Run(ctx, 0)

	cancel()
	if h.opts.Settings.ListenAddr != "" {
		if serr := <-serveErr; serr != nil {
			err = fmt.Errorf("stream server: %w", serr)
		}
	}

	return result, err
}

func (h *HauntMesh) startHub() {
	h.hubOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		h.hubCancel = cancel
		go h.hub.Run(ctx)
	})
}

// Shutdown stops the event hub and flushes the telemetry providers the
// façade created.
func (h *HauntMesh) Shutdown(ctx context.Context) error {
	h.hubOnce.Do(func() {})
	if h.hubCancel != nil {
		h.hubCancel()
	}

	var errs []error
	if h.metrics != nil {
		errs = append(errs, h.metrics.Shutdown(ctx))
	}
	if h.tracing != nil {
		errs = append(errs, h.tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
