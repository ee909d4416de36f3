package harness

import (
	"encoding/json"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/store"
)

// Trace event types.
const (
	EventCascade  = "cascade"
	EventDelivery = "delivery"
)

// TraceEvent is one record of a scenario trace: a cascade start or a
// delivery. Values are kept in canonical JSON so traces compare byte for
// byte.
type TraceEvent struct {
	Type      string          `json:"type"` // "cascade" or "delivery"
	Seq       int64           `json:"seq"`
	Cascade   string          `json:"cascade"`
	Time      float64         `json:"time"`
	Origin    string          `json:"origin,omitempty"`
	Depth     int             `json:"depth,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	FieldType string          `json:"field_type,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace is the recorded timeline in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// toTraceEvents converts a stored timeline into trace events.
func toTraceEvents(timeline []store.TraceEvent) ([]TraceEvent, error) {
	events := make([]TraceEvent, 0, len(timeline))
	for _, ev := range timeline {
		switch ev.Type {
		case store.EventCascade:
			c := ev.Cascade
			events = append(events, TraceEvent{
				Type:    EventCascade,
				Seq:     c.Seq,
				Cascade: c.Token,
				Time:    c.Timestamp,
				Origin:  c.Origin,
			})
		case store.EventDelivery:
			d := ev.Delivery
			value, err := field.MarshalCanonical(d.Value)
			if err != nil {
				return nil, err
			}
			events = append(events, TraceEvent{
				Type:      EventDelivery,
				Seq:       d.Seq,
				Cascade:   d.CascadeToken,
				Time:      d.Timestamp,
				Depth:     d.Depth,
				From:      d.Source(),
				To:        d.Target(),
				FieldType: d.Value.Type().String(),
				Value:     value,
			})
		}
	}
	return events, nil
}
