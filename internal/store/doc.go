// Package store provides SQLite-backed durable storage for event traces.
//
// The store implements an append-only log with:
//   - Cascades: one record per top-level stimulus (a send or an emission
//     outside any cascade)
//   - Deliveries: one record per event delivered inside a cascade, with
//     the delivered value in canonical JSON
//
// # Ordering
//
// All ordering uses seq INTEGER (the engine's logical clock), NEVER
// timestamps. Every query includes ORDER BY seq ASC, id COLLATE BINARY ASC
// so reading the same trace twice yields identical results.
//
// # Idempotency
//
// Delivery IDs are content-addressed from the cascade token and sequence
// number (field.DeliveryID). Writes use ON CONFLICT DO NOTHING, so
// recording the same run twice leaves the trace unchanged.
//
// # Database Configuration
//
// Open passes the connection settings in the go-sqlite3 DSN: WAL journal,
// synchronous=NORMAL, a busy timeout (DefaultBusyTimeout, WithBusyTimeout)
// and foreign keys, so deliveries must reference a recorded cascade.
// ReadOnly opens an existing trace with query_only set and checks that its
// user_version is one this package wrote.
package store
