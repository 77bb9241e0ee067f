// Package stream publishes a running simulation over HTTP.
//
// A Hub fans round events out to WebSocket subscribers as JSON frames:
//
//	{"type":"round","payload":{...core.RoundEvent...}}
//
// Server mounts the hub on /ws next to the run history (/runs,
// /runs/{id}, /runs/{id}/events?after=N) and an optional Prometheus
// handler on /metrics.
package stream
