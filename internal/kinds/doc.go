// Package kinds is a small library of node kinds built on the node
// contract: grouping (Group, Transform), geometry (Shape, Appearance,
// Material, Box, Sphere), sensors (TouchSensor, TimeSensor) and linear
// interpolators.
//
// Kinds are registered explicitly:
//
//	reg := node.NewRegistry()
//	if err := kinds.RegisterBuiltins(reg); err != nil { ... }
//
// Rendering, picking and viewpoint handling are out of scope. Sensors emit
// through the ordinary emitter API; TouchSensor input is synthesized with
// Touch, and TimeSensor is advanced by the engine's Tick.
package kinds
