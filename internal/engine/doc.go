// Package engine implements event propagation for a scene graph.
//
// ARCHITECTURE:
//
// Routes:
// The Router keeps the routing table: for every emitter, the routes leaving
// it in insertion order. AddRoute validates both endpoints and their type
// tags before anything is inserted, so delivery can never see a mismatched
// value. RemoveRoute is idempotent.
//
// Cascades:
// One top-level stimulus (a sent eventIn, a sensor emission, a clock tick
// hook) starts a cascade identified by a token. Delivery is depth-first: a
// listener's own cascade completes before the next sibling route from the
// same emitter is delivered. Every delivery is stamped with the logical
// clock and reported to the Observer.
//
// Cyclic routes:
// Deliveries are counted per timestamp. Exceeding the quota (DefaultMaxSteps
// unless WithMaxSteps) aborts the cascade with a *StepsExceededError. With
// WithLoopBreaking an eventOut additionally fires at most once per
// timestamp, which stops loops silently.
//
// Single-Writer Event Loop:
// Engine.Run processes queued events one at a time in one goroutine. Other
// goroutines (loaders, file watchers, timers) submit stimulus events and
// graph mutations with Enqueue. Synchronous calls such as SendEvent and Tick
// are for the goroutine that drives the engine.
package engine
