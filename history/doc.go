// Package history keeps the round events of simulation runs in memory so
// that observers (the HTTP API, the websocket stream, tests) can replay a
// run after the fact. Nothing is persisted.
package history
