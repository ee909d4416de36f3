package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scenecore/internal/compiler"
	"github.com/roach88/scenecore/internal/config"
)

// Scenario defines a conformance test scenario.
// A scenario loads one scene, drives it through a list of steps and asserts
// on the resulting graph state and the recorded delivery trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files declaring scenes. Paths are relative to the
	// scenario file location.
	Specs []string `yaml:"specs,omitempty"`

	// Source is inline CUE, unified with Specs.
	Source string `yaml:"source,omitempty"`

	// Scene selects the scene to load. It may be omitted when exactly one
	// scene is declared.
	Scene string `yaml:"scene,omitempty"`

	// Engine overrides the delivery quota and loop breaking. A zero quota
	// keeps the engine default.
	Engine config.EngineConfig `yaml:"engine,omitempty"`

	// CascadePrefix prefixes the sequential cascade tokens
	// (<prefix>-0001, ...). Defaults to "cascade".
	CascadePrefix string `yaml:"cascade_prefix,omitempty"`

	// Steps drive the scene in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final graph and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one stimulus or graph edit. Exactly one operation field is set.
type Step struct {
	Send        *EventStep `yaml:"send,omitempty"`
	Emit        *EventStep `yaml:"emit,omitempty"`
	Set         *SetStep   `yaml:"set,omitempty"`
	Touch       *TouchStep `yaml:"touch,omitempty"`
	Tick        *float64   `yaml:"tick,omitempty"`
	AddRoute    string     `yaml:"add_route,omitempty"`
	RemoveRoute string     `yaml:"remove_route,omitempty"`
	Collect     bool       `yaml:"collect,omitempty"`

	// ExpectError is the error code the step must fail with, for example
	// UNSUPPORTED_INTERFACE. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// EventStep sends a value to an input (send) or fires an output (emit).
type EventStep struct {
	Node  string   `yaml:"node"`
	Event string   `yaml:"event"`
	Value any      `yaml:"value"`
	Time  *float64 `yaml:"time,omitempty"` // defaults to the current scene time
}

// SetStep assigns a field directly, without emitting.
type SetStep struct {
	Node  string `yaml:"node"`
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// TouchStep synthesizes a click on a TouchSensor.
type TouchStep struct {
	Node  string    `yaml:"node"`
	Point []float64 `yaml:"point,omitempty"`
	Time  *float64  `yaml:"time,omitempty"`
}

// Op names the step's operation, or "" when none or several are set.
func (s Step) Op() string {
	var ops []string
	if s.Send != nil {
		ops = append(ops, OpSend)
	}
	if s.Emit != nil {
		ops = append(ops, OpEmit)
	}
	if s.Set != nil {
		ops = append(ops, OpSet)
	}
	if s.Touch != nil {
		ops = append(ops, OpTouch)
	}
	if s.Tick != nil {
		ops = append(ops, OpTick)
	}
	if s.AddRoute != "" {
		ops = append(ops, OpAddRoute)
	}
	if s.RemoveRoute != "" {
		ops = append(ops, OpRemoveRoute)
	}
	if s.Collect {
		ops = append(ops, OpCollect)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Step operations.
const (
	OpSend        = "send"
	OpEmit        = "emit"
	OpSet         = "set"
	OpTouch       = "touch"
	OpTick        = "tick"
	OpAddRoute    = "add_route"
	OpRemoveRoute = "remove_route"
	OpCollect     = "collect"
)

// Assertion validates final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "field_equals": node's field holds Value
	// - "modified": node's modified flag equals Want
	// - "alive": node survived collection (Want)
	// - "fired": node's output Event fired at least once (Want)
	// - "trace_contains": a delivery matches From, To and Value
	// - "trace_order": first deliveries to Targets happen in order
	// - "trace_count": exactly Count deliveries match Where
	Type string `yaml:"type"`

	Node  string `yaml:"node,omitempty"`
	Field string `yaml:"field,omitempty"`
	Event string `yaml:"event,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Want is the expected flag for modified, alive and fired. Default true.
	Want *bool `yaml:"want,omitempty"`

	// From and To are Node.event endpoints (trace_contains).
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Targets are Node.event inputs in expected delivery order (trace_order).
	Targets []string `yaml:"targets,omitempty"`

	// Where is a trace filter such as "to=Lamp.set_on depth>0" (trace_count).
	Where string `yaml:"where,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// want returns the expected flag, defaulting to true.
func (a Assertion) want() bool {
	return a.Want == nil || *a.Want
}

// Assertion type constants.
const (
	AssertFieldEquals   = "field_equals"
	AssertModified      = "modified"
	AssertAlive         = "alive"
	AssertFired         = "fired"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 && s.Source == "" {
		return fmt.Errorf("specs or source is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	op := s.Op()
	if op == "" {
		return fmt.Errorf("steps[%d]: exactly one operation is required", index)
	}

	switch op {
	case OpSend, OpEmit:
		ev := s.Send
		if ev == nil {
			ev = s.Emit
		}
		if ev.Node == "" || ev.Event == "" {
			return fmt.Errorf("steps[%d]: %s needs node and event", index, op)
		}
		if ev.Value == nil {
			return fmt.Errorf("steps[%d]: %s needs a value", index, op)
		}
	case OpSet:
		if s.Set.Node == "" || s.Set.Field == "" || s.Set.Value == nil {
			return fmt.Errorf("steps[%d]: set needs node, field and value", index)
		}
	case OpTouch:
		if s.Touch.Node == "" {
			return fmt.Errorf("steps[%d]: touch needs a node", index)
		}
		if len(s.Touch.Point) != 0 && len(s.Touch.Point) != 3 {
			return fmt.Errorf("steps[%d]: touch point needs 3 components", index)
		}
	case OpAddRoute, OpRemoveRoute:
		route := s.AddRoute + s.RemoveRoute
		if _, err := compiler.ParseRoute(route); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFieldEquals:
		if a.Node == "" || a.Field == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: node, field and value are required for field_equals", index)
		}
	case AssertModified, AssertAlive:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertFired:
		if a.Node == "" || a.Event == "" {
			return fmt.Errorf("assertions[%d]: node and event are required for fired", index)
		}
	case AssertTraceContains:
		if a.From == "" && a.To == "" {
			return fmt.Errorf("assertions[%d]: from or to is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Targets) == 0 {
			return fmt.Errorf("assertions[%d]: targets list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
