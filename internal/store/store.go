package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the user_version written to every trace database.
// 1 - cascades and deliveries
const SchemaVersion = 1

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DefaultBusyTimeout is how long a connection waits for a lock held by
// another process before failing with SQLITE_BUSY.
const DefaultBusyTimeout = 5 * time.Second

// ErrNotTraceDatabase is returned when a read-only open finds a database
// that was never initialized by this package.
var ErrNotTraceDatabase = errors.New("not a scenecore trace database")

// Store is the trace log of one SQLite database.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	readOnly    bool
}

// WithBusyTimeout sets how long to wait for a lock. Zero keeps the default.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// ReadOnly opens an existing trace for queries. The schema is not applied
// and writes fail.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Open opens the trace database at path, creating it and its schema unless
// ReadOnly is given. Connection settings travel in the go-sqlite3 DSN so
// every pooled connection gets them:
//
//	_busy_timeout         DefaultBusyTimeout unless overridden
//	_foreign_keys=on      deliveries must reference a recorded cascade
//	_journal_mode=WAL     readers never block the recording run
//	_synchronous=NORMAL
//	_query_only=on        with ReadOnly, instead of the two above
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dsn, err := buildDSN(path, o)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	s := &Store{db: db, readOnly: o.readOnly}
	if o.readOnly {
		err = s.checkVersion()
	} else {
		err = s.migrate()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func buildDSN(path string, o options) (string, error) {
	if path == "" {
		return "", errors.New("open: empty database path")
	}
	if strings.ContainsRune(path, '?') {
		return "", fmt.Errorf("open %s: path must not contain '?'", path)
	}
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(o.busyTimeout.Milliseconds(), 10))
	q.Set("_foreign_keys", "on")
	if o.readOnly {
		// The journal mode is persistent; a reader keeps whatever the
		// recording run chose.
		q.Set("_query_only", "on")
	} else {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return path + "?" + q.Encode(), nil
}

// migrate applies the schema and stamps the version. Tables are created
// with IF NOT EXISTS, so reopening a trace keeps its records.
func (s *Store) migrate() error {
	version, err := s.userVersion()
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) checkVersion() error {
	version, err := s.userVersion()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		return ErrNotTraceDatabase
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	return nil
}

func (s *Store) userVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReadOnly reports whether the store was opened with ReadOnly.
func (s *Store) ReadOnly() bool { return s.readOnly }

// DB returns the underlying handle for queries the Store does not wrap.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query runs a read query, as compiled by package tracequery. Callers close
// the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}
