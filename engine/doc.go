// Package engine runs a simulation: an Agent coordinating Workers round by
// round.
//
// # Round Lifecycle
//
// Every round follows the same sequence:
//
//  1. before_round callbacks (an error aborts the round)
//  2. the Selector picks a worker, an action and its arguments
//  3. the action is invoked; errors and panics become failed outcomes
//  4. after_action callbacks
//  5. the worker's state callback, then the agent's
//  6. a core.RoundEvent with a state snapshot is recorded
//  7. on_state_change and after_round callbacks
//
// The first round lazily initialises the state by calling the agent's state
// callback with no previous state.
//
// # Usage
//
//	agent, err := hauntedhouse.NewAgent(scenario.Default())
//	if err != nil {
//	    return err
//	}
//
//	eng, err := engine.New(agent, func(o *engine.Options) {
//	    o.Selector = selector.NewRoundRobin()
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := eng.Run(ctx, 6)
//
// # Observers
//
// History, streaming and telemetry attach through the CallbackManager. They
// always receive private snapshots of the state.
package engine
