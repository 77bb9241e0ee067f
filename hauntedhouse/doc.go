// Package hauntedhouse is the concrete haunted house simulation: three
// workers (ghost performer, sound effects operator, fog machine technician)
// with one action each, coordinated by an agent trying to maximise guest
// screams.
//
// The handlers are pure functions; NewAgent turns a scenario into an
// engine.Agent ready to run.
package hauntedhouse
