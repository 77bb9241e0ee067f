// Package core provides the foundational domain types shared by every other
// hauntmesh package. It defines:
//
//   - SimulationState (agent counters plus per-worker resource levels)
//   - ActionOutcome / Payload (the result of one worker action)
//   - closed enumerations for outcome status, action tags and worker kinds
//   - RoundEvent (an immutable record of one orchestrated round)
//   - Content / Part types exchanged with language model providers
//   - DecisionLimiter (per-run cap on model backed decisions)
//
// The package holds data and small pure helpers only. State transitions live in
// package state, the round driver in package engine.
package core
