package tracequery

import (
	"context"
	"fmt"

	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/store"
)

// Find runs a Select against s.
func Find(ctx context.Context, s *store.Store, q Select) ([]ir.Delivery, error) {
	sql, params, err := Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("trace query: %w", err)
	}
	return store.ScanDeliveries(rows)
}

// CountMatches runs a Count against s.
func CountMatches(ctx context.Context, s *store.Store, filter Predicate) (int, error) {
	sql, params, err := Compile(Count{Filter: filter})
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.DB().QueryRowContext(ctx, sql, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("trace query: %w", err)
	}
	return n, nil
}
