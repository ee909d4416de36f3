package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/scenecore/internal/ir"
)

// CascadeTrace is one recorded cascade with its deliveries and a summary.
type CascadeTrace struct {
	Cascade    ir.Cascade
	Deliveries []ir.Delivery
	LastSeq    int64 // highest seq in the cascade
	MaxDepth   int   // deepest delivery; 0 for a cascade without routes
}

// GetCascadeTrace retrieves a cascade and its deliveries.
// Returns sql.ErrNoRows (wrapped) if the cascade was never recorded.
func (s *Store) GetCascadeTrace(ctx context.Context, token string) (CascadeTrace, error) {
	c, err := s.ReadCascade(ctx, token)
	if err != nil {
		return CascadeTrace{}, fmt.Errorf("get cascade trace %q: %w", token, err)
	}

	deliveries, err := s.ReadDeliveries(ctx, token)
	if err != nil {
		return CascadeTrace{}, fmt.Errorf("get cascade trace %q: %w", token, err)
	}

	trace := CascadeTrace{Cascade: c, Deliveries: deliveries, LastSeq: c.Seq}
	for _, d := range deliveries {
		trace.LastSeq = max(trace.LastSeq, d.Seq)
		trace.MaxDepth = max(trace.MaxDepth, d.Depth)
	}
	return trace, nil
}

// TraceEvent is a single record of the trace: a cascade start or a
// delivery.
type TraceEvent struct {
	Type     TraceEventType
	Seq      int64
	ID       string // cascade token or delivery ID
	Cascade  *ir.Cascade
	Delivery *ir.Delivery
}

// TraceEventType distinguishes cascade starts from deliveries.
type TraceEventType int

const (
	EventCascade TraceEventType = iota
	EventDelivery
)

// String returns the event type as a string.
func (t TraceEventType) String() string {
	switch t {
	case EventCascade:
		return "cascade"
	case EventDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// Timeline returns the whole trace as one merged, seq-ordered stream.
// A cascade sorts before any delivery with the same seq, so each cascade
// heads its own deliveries.
func (s *Store) Timeline(ctx context.Context) ([]TraceEvent, error) {
	cascades, err := s.ReadAllCascades(ctx)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	deliveries, err := s.ReadAllDeliveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	events := make([]TraceEvent, 0, len(cascades)+len(deliveries))
	for i := range cascades {
		c := &cascades[i]
		events = append(events, TraceEvent{Type: EventCascade, Seq: c.Seq, ID: c.Token, Cascade: c})
	}
	for i := range deliveries {
		d := &deliveries[i]
		events = append(events, TraceEvent{Type: EventDelivery, Seq: d.Seq, ID: d.ID, Delivery: d})
	}

	slices.SortStableFunc(events, compareEvents)
	return events, nil
}

// compareEvents orders by seq, then type (cascades first), then ID.
func compareEvents(a, b TraceEvent) int {
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	return strings.Compare(a.ID, b.ID)
}

// GetLastSeq returns the highest seq number used in the store.
// A resumed engine starts its logical clock from here so new records never
// collide with recorded ones.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var cascadeSeq, deliverySeq int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM cascades
	`).Scan(&cascadeSeq); err != nil {
		return 0, fmt.Errorf("get last seq from cascades: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM deliveries
	`).Scan(&deliverySeq); err != nil {
		return 0, fmt.Errorf("get last seq from deliveries: %w", err)
	}
	return max(cascadeSeq, deliverySeq), nil
}

// ListCascadeTokens returns every cascade token in seq order.
func (s *Store) ListCascadeTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token FROM cascades
		ORDER BY seq ASC, token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cascade tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan cascade token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cascade tokens: %w", err)
	}
	return tokens, nil
}
