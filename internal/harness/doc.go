// Package harness provides conformance testing for scenecore scenes.
//
// The harness compiles CUE scene declarations, instantiates them in a real
// engine, drives the scene through a list of steps, and validates the final
// graph and the recorded delivery trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - specs/lamp.cue
//	scene: Lamp
//	engine:
//	  max_steps: 100
//	  loop_breaking: false
//	steps:
//	  - send: { node: Mat, event: set_transparency, value: 0.5, time: 1 }
//	  - emit: { node: Button, event: isActive, value: true }
//	  - set: { node: Root, field: children, value: [] }
//	  - touch: { node: Button, point: [0, 1, 0], time: 2 }
//	  - tick: 3
//	  - add_route: "A.value_changed TO B.set_transparency"
//	  - remove_route: "A.value_changed TO B.set_transparency"
//	  - collect: true
//	    expect_error: CASCADE_IN_PROGRESS
//	assertions:
//	  - type: field_equals
//	    node: Mat
//	    field: transparency
//	    value: 0.5
//	  - type: trace_count
//	    where: "to=Mat.set_transparency depth>0"
//	    count: 1
//
// Values use the same loose forms as scene declarations: numbers, booleans,
// strings and lists, with DEF names for node references.
//
// # Assertion Types
//
//   - field_equals: a node's field holds a value
//   - modified: a node's modified flag (descendants included)
//   - alive: a node survived collection
//   - fired: an output fired at least once
//   - trace_contains: a delivery matches from/to endpoints and a value
//   - trace_order: first deliveries to the targets happen in order
//   - trace_count: exactly N deliveries match a trace filter
//
// # Deterministic Testing
//
// Every scenario runs with sequential cascade tokens (cascade-0001, ...),
// the engine's logical clock and a fresh in-memory SQLite store, so traces
// are identical across runs and can be compared against golden files in
// testdata/golden.
package harness
