package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
)

// DeliveryColumns lists the deliveries columns in the order scanDelivery
// reads them.
const DeliveryColumns = `id, seq, cascade_token, timestamp, depth,
	src_node, src_name, src_event, dst_node, dst_name, dst_event,
	field_type, value`

// ReadCascade retrieves a single cascade by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCascade(ctx context.Context, token string) (ir.Cascade, error) {
	var c ir.Cascade
	err := s.db.QueryRowContext(ctx, `
		SELECT token, origin, timestamp, seq
		FROM cascades
		WHERE token = ?
	`, token).Scan(&c.Token, &c.Origin, &c.Timestamp, &c.Seq)
	if err != nil {
		return ir.Cascade{}, err
	}
	return c, nil
}

// ReadAllCascades returns every cascade in seq order.
//
// Returns an empty slice (not nil) if the store holds no trace.
func (s *Store) ReadAllCascades(ctx context.Context) ([]ir.Cascade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, origin, timestamp, seq
		FROM cascades
		ORDER BY seq ASC, token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cascades: %w", err)
	}
	defer rows.Close()

	cascades := []ir.Cascade{}
	for rows.Next() {
		var c ir.Cascade
		if err := rows.Scan(&c.Token, &c.Origin, &c.Timestamp, &c.Seq); err != nil {
			return nil, fmt.Errorf("scan cascade: %w", err)
		}
		cascades = append(cascades, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cascades: %w", err)
	}
	return cascades, nil
}

// ReadDeliveries returns the deliveries of one cascade in seq order.
//
// Returns an empty slice (not nil) if the cascade has no deliveries.
func (s *Store) ReadDeliveries(ctx context.Context, cascadeToken string) ([]ir.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+DeliveryColumns+`
		FROM deliveries
		WHERE cascade_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, cascadeToken)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	return ScanDeliveries(rows)
}

// ReadAllDeliveries returns every delivery in seq order.
func (s *Store) ReadAllDeliveries(ctx context.Context) ([]ir.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+DeliveryColumns+`
		FROM deliveries
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	return ScanDeliveries(rows)
}

// ReadDelivery retrieves a single delivery by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadDelivery(ctx context.Context, id string) (ir.Delivery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+DeliveryColumns+`
		FROM deliveries
		WHERE id = ?
	`, id)
	return scanDelivery(row)
}

// ScanDeliveries drains rows selecting the delivery columns in table order
// and closes them. Queries compiled by package tracequery select exactly
// those columns.
func ScanDeliveries(rows *sql.Rows) ([]ir.Delivery, error) {
	defer rows.Close()

	deliveries := []ir.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (ir.Delivery, error) {
	var (
		d                ir.Delivery
		srcNode, dstNode int64
		typeName, value  string
	)
	err := row.Scan(
		&d.ID, &d.Seq, &d.CascadeToken, &d.Timestamp, &d.Depth,
		&srcNode, &d.SrcName, &d.SrcEvent, &dstNode, &d.DstName, &d.DstEvent,
		&typeName, &value,
	)
	if err != nil {
		return ir.Delivery{}, err
	}
	d.SrcNode = field.NodeID(srcNode)
	d.DstNode = field.NodeID(dstNode)

	d.Value, err = unmarshalValue(typeName, value)
	if err != nil {
		return ir.Delivery{}, fmt.Errorf("delivery %s: %w", d.ID, err)
	}
	return d, nil
}
