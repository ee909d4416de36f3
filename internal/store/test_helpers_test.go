package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// verifyPragma checks that a pragma reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("pragma %s = %q, want %q", name, value, expected)
	}
	return nil
}

// createTestCascade creates a test cascade with minimal required fields.
func createTestCascade(token, origin string, ts float64, seq int64) ir.Cascade {
	return ir.Cascade{Token: token, Origin: origin, Timestamp: ts, Seq: seq}
}

// createTestDelivery creates a routed delivery A.out -> B.in carrying v.
func createTestDelivery(token string, seq int64, depth int, v field.Value) ir.Delivery {
	return ir.Delivery{
		ID:           field.DeliveryID(token, seq),
		CascadeToken: token,
		Seq:          seq,
		Timestamp:    1,
		Depth:        depth,
		SrcNode:      1,
		SrcName:      "A",
		SrcEvent:     "out",
		DstNode:      2,
		DstName:      "B",
		DstEvent:     "in",
		Value:        v,
	}
}
