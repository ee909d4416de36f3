package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scenecore/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteCascade inserts a cascade record into the store.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - duplicate tokens are silently ignored.
func (s *Store) WriteCascade(ctx context.Context, c ir.Cascade) error {
	if err := writeCascade(ctx, s.db, c); err != nil {
		return fmt.Errorf("write cascade: %w", err)
	}
	return nil
}

// WriteDelivery inserts a delivery record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
//
// The delivered value is serialized to canonical JSON together with its
// type tag so it can be decoded exactly.
//
// Note: The cascade referenced by CascadeToken must exist (foreign key constraint).
func (s *Store) WriteDelivery(ctx context.Context, d ir.Delivery) error {
	if err := writeDelivery(ctx, s.db, d); err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}

// WriteTrace atomically writes a cascade and its deliveries in a single
// transaction. Either the whole cascade is recorded or none of it.
func (s *Store) WriteTrace(ctx context.Context, c ir.Cascade, deliveries []ir.Delivery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeCascade(ctx, tx, c); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	for _, d := range deliveries {
		if d.CascadeToken != c.Token {
			return fmt.Errorf("write trace: delivery %s belongs to cascade %q, not %q", d.ID, d.CascadeToken, c.Token)
		}
		if err := writeDelivery(ctx, tx, d); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}

func writeCascade(ctx context.Context, db execer, c ir.Cascade) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cascades
		(token, origin, timestamp, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		c.Token,
		c.Origin,
		c.Timestamp,
		c.Seq,
	)
	return err
}

func writeDelivery(ctx context.Context, db execer, d ir.Delivery) error {
	typeName, valueJSON, err := marshalValue(d.Value)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO deliveries
		(id, seq, cascade_token, timestamp, depth,
		 src_node, src_name, src_event, dst_node, dst_name, dst_event,
		 field_type, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		d.ID,
		d.Seq,
		d.CascadeToken,
		d.Timestamp,
		d.Depth,
		int64(d.SrcNode),
		d.SrcName,
		d.SrcEvent,
		int64(d.DstNode),
		d.DstName,
		d.DstEvent,
		typeName,
		valueJSON,
	)
	return err
}
