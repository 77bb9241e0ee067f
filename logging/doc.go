// Package logging provides a minimal logging interface and adapters for hauntmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, selectors and state callbacks use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - HauntLogger with component/run context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng, err := engine.New(agent, func(o *engine.Options) { o.Logger = logger })
//
// State-update callbacks accept a plain Logger; when it is a *HauntLogger the
// richer before/after records are emitted, otherwise a single key/value line.
package logging
