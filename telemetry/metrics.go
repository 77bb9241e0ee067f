package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/engine"
)

// ScopeName is the instrumentation scope of every hauntmesh meter and tracer.
const ScopeName = "github.com/hupe1980/hauntmesh"

// Metrics bundles a meter provider with the Prometheus registry it exports to.
type Metrics struct {
	Provider *sdkmetric.MeterProvider
	Registry *prometheus.Registry
}

// InitMetrics creates a meter provider exporting to a private Prometheus
// registry.
func InitMetrics(serviceName string) (*Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdkmetric.WithReader(exporter),
	)

	return &Metrics{Provider: provider, Registry: registry}, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.Provider.Shutdown(ctx)
}

// Recorder turns round events into metrics:
//
//	hauntmesh.rounds          rounds played, by worker, action and status
//	hauntmesh.errors          aborted rounds and failed actions
//	hauntmesh.scare_points    scare points awarded
//	hauntmesh.stress_points   stress points awarded
//	hauntmesh.resource.level  latest level per worker resource
type Recorder struct {
	rounds metric.Int64Counter
	errors metric.Int64Counter
	scare  metric.Int64Counter
	stress metric.Int64Counter
	levels metric.Int64Gauge
}

// NewRecorder creates the instruments on the given provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(ScopeName)

	rounds, err := meter.Int64Counter(
		"hauntmesh.rounds",
		metric.WithDescription("Rounds played"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rounds counter: %w", err)
	}

	errs, err := meter.Int64Counter(
		"hauntmesh.errors",
		metric.WithDescription("Aborted rounds and failed actions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	scare, err := meter.Int64Counter(
		"hauntmesh.scare_points",
		metric.WithDescription("Scare points awarded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scare counter: %w", err)
	}

	stress, err := meter.Int64Counter(
		"hauntmesh.stress_points",
		metric.WithDescription("Guest stress points awarded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stress counter: %w", err)
	}

	levels, err := meter.Int64Gauge(
		"hauntmesh.resource.level",
		metric.WithDescription("Latest level of a worker resource"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource gauge: %w", err)
	}

	return &Recorder{rounds: rounds, errors: errs, scare: scare, stress: stress, levels: levels}, nil
}

// RecordRound records one completed round.
func (r *Recorder) RecordRound(ctx context.Context, ev core.RoundEvent) {
	attrs := metric.WithAttributes(
		attribute.String("worker", ev.Worker.String()),
		attribute.String("action", ev.Action),
		attribute.String("status", ev.Outcome.Status.String()),
	)
	r.rounds.Add(ctx, 1, attrs)

	if ev.Succeeded() {
		if n := ev.Outcome.Payload.ScareDelta(); n > 0 {
			r.scare.Add(ctx, int64(n), attrs)
		}
		if n := ev.Outcome.Payload.StressDelta(); n > 0 {
			r.stress.Add(ctx, int64(n), attrs)
		}
	}

	if ev.State == nil {
		return
	}
	for id, ws := range ev.State.Workers {
		for name, level := range ws.Resources {
			r.levels.Record(ctx, int64(level), metric.WithAttributes(
				attribute.String("worker", id.String()),
				attribute.String("resource", name),
			))
		}
	}
}

// RecordError counts a failure reported through on_error.
func (r *Recorder) RecordError(ctx context.Context, stage string) {
	r.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// Callbacks returns the engine hooks feeding the recorder.
func (r *Recorder) Callbacks() []engine.Callback {
	return []engine.Callback{
		engine.NewFunctionCallback(engine.CallbackAfterRound, func(ctx context.Context, cc *engine.CallbackContext) error {
			if cc.Event != nil {
				r.RecordRound(ctx, *cc.Event)
			}
			return nil
		}),
		engine.NewFunctionCallback(engine.CallbackOnError, func(ctx context.Context, cc *engine.CallbackContext) error {
			stage := "select"
			if cc.Outcome != nil || cc.Decision != nil {
				stage = "action"
			}
			r.RecordError(ctx, stage)
			return nil
		}),
	}
}
