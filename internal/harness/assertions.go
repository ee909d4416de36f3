package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/tracequery"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventDelivery {
				fmt.Fprintf(&buf, "  [%d] %s -> %s %s\n", event.Seq, event.From, event.To, event.Value)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the harness state
// and the result's trace. Returns a slice of error messages for failed
// assertions.
func (h *Harness) EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFieldEquals:
			err = h.assertFieldEquals(assertion)
		case AssertModified:
			err = h.assertModified(assertion)
		case AssertAlive:
			err = h.assertAlive(assertion)
		case AssertFired:
			err = h.assertFired(assertion)
		case AssertTraceContains:
			err = h.assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = h.assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertFieldEquals checks a node's current field value.
func (h *Harness) assertFieldEquals(a Assertion) error {
	n, ok := h.nodes[a.Node]
	if !ok || !n.Alive() {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("live node %s", a.Node),
			Actual:   "no such node",
		}
	}
	actual, err := n.Field(a.Field)
	if err != nil {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("field %s.%s", a.Node, a.Field),
			Actual:   err.Error(),
		}
	}
	expected, err := h.decode(actual.Type(), a.Value)
	if err != nil {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("%s.%s = %v", a.Node, a.Field, a.Value),
			Actual:   err.Error(),
		}
	}
	if eq, _ := field.Equal(expected, actual); !eq {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("%s.%s = %s", a.Node, a.Field, canonical(expected)),
			Actual:   canonical(actual),
		}
	}
	return nil
}

// assertModified checks a node's modified flag, including descendants for
// grouping kinds.
func (h *Harness) assertModified(a Assertion) error {
	n, ok := h.nodes[a.Node]
	if !ok {
		return &AssertionError{Type: AssertModified, Expected: fmt.Sprintf("node %s", a.Node), Actual: "no such node"}
	}
	if got := n.Modified(); got != a.want() {
		return &AssertionError{
			Type:     AssertModified,
			Expected: fmt.Sprintf("%s modified = %t", a.Node, a.want()),
			Actual:   fmt.Sprintf("modified = %t", got),
		}
	}
	return nil
}

// assertAlive checks whether a node survived collection.
func (h *Harness) assertAlive(a Assertion) error {
	n, ok := h.nodes[a.Node]
	if !ok {
		return &AssertionError{Type: AssertAlive, Expected: fmt.Sprintf("node %s", a.Node), Actual: "no such node"}
	}
	if got := n.Alive(); got != a.want() {
		return &AssertionError{
			Type:     AssertAlive,
			Expected: fmt.Sprintf("%s alive = %t", a.Node, a.want()),
			Actual:   fmt.Sprintf("alive = %t", got),
		}
	}
	return nil
}

// assertFired checks whether an output fired at least once.
func (h *Harness) assertFired(a Assertion) error {
	n, ok := h.nodes[a.Node]
	if !ok {
		return &AssertionError{Type: AssertFired, Expected: fmt.Sprintf("node %s", a.Node), Actual: "no such node"}
	}
	em, err := n.EventEmitter(a.Event)
	if err != nil {
		return &AssertionError{
			Type:     AssertFired,
			Expected: fmt.Sprintf("output %s.%s", a.Node, a.Event),
			Actual:   err.Error(),
		}
	}
	_, fired := em.LastFired()
	if fired != a.want() {
		return &AssertionError{
			Type:     AssertFired,
			Expected: fmt.Sprintf("%s.%s fired = %t", a.Node, a.Event, a.want()),
			Actual:   fmt.Sprintf("fired = %t", fired),
		}
	}
	return nil
}

// assertTraceContains queries the store for a delivery matching the from
// and to endpoints and, when given, the delivered value.
func (h *Harness) assertTraceContains(trace []TraceEvent, a Assertion) error {
	filter, err := endpointFilter(a)
	if err != nil {
		return err
	}
	matches, err := tracequery.Find(h.ctx, h.store, tracequery.Select{Filter: filter})
	if err != nil {
		return err
	}

	for _, d := range matches {
		if a.Value == nil {
			return nil
		}
		expected, err := h.decode(d.Value.Type(), a.Value)
		if err != nil {
			continue
		}
		if eq, _ := field.Equal(expected, d.Value); eq {
			return nil
		}
	}

	expected := describeEndpoints(a)
	if a.Value != nil {
		expected += fmt.Sprintf(" with value %v", a.Value)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   fmt.Sprintf("not found in trace (%d deliveries matched the endpoints)", len(matches)),
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first deliveries to each target appear
// in the specified order. Targets don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventDelivery {
			continue
		}
		if _, seen := positions[event.To]; !seen {
			positions[event.To] = i + 1 // 1-indexed for readability
		}
	}

	for _, target := range a.Targets {
		if positions[target] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("deliveries to all of %v", a.Targets),
				Actual:   fmt.Sprintf("nothing delivered to %s", target),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Targets); i++ {
		prev, curr := a.Targets[i-1], a.Targets[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("deliveries in order: %v", a.Targets),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount counts the deliveries matching the where filter plus any
// from and to endpoints.
func (h *Harness) assertTraceCount(trace []TraceEvent, a Assertion) error {
	where, err := tracequery.ParseFilter(a.Where)
	if err != nil {
		return fmt.Errorf("trace_count: %w", err)
	}
	endpoints, err := endpointFilter(a)
	if err != nil {
		return err
	}
	var preds []tracequery.Predicate
	for _, p := range []tracequery.Predicate{where, endpoints} {
		if p != nil {
			preds = append(preds, p)
		}
	}
	var filter tracequery.Predicate
	if len(preds) > 0 {
		filter = tracequery.Where(preds...)
	}

	count, err := tracequery.CountMatches(h.ctx, h.store, filter)
	if err != nil {
		return err
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d deliveries matching %q %s", a.Count, a.Where, describeEndpoints(a)),
			Actual:   fmt.Sprintf("%d deliveries", count),
			Trace:    trace,
		}
	}
	return nil
}

// endpointFilter builds the predicate for an assertion's from and to
// endpoints. It returns nil when neither is set.
func endpointFilter(a Assertion) (tracequery.Predicate, error) {
	var preds []tracequery.Predicate
	for _, ep := range []struct {
		value string
		build func(string, string) tracequery.Predicate
	}{
		{a.From, tracequery.From},
		{a.To, tracequery.To},
	} {
		if ep.value == "" {
			continue
		}
		nodeName, event, ok := strings.Cut(ep.value, ".")
		if !ok || nodeName == "" || event == "" {
			return nil, fmt.Errorf("%s: endpoint %q must be Node.event", a.Type, ep.value)
		}
		preds = append(preds, ep.build(nodeName, event))
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return tracequery.Where(preds...), nil
}

func describeEndpoints(a Assertion) string {
	var parts []string
	if a.From != "" {
		parts = append(parts, "from "+a.From)
	}
	if a.To != "" {
		parts = append(parts, "to "+a.To)
	}
	return strings.Join(parts, " ")
}

func canonical(v field.Value) string {
	data, err := field.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
