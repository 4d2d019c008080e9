// Package db opens and migrates Aura's SQLite store. Connection setup and
// PRAGMA tuning are grounded directly on the teacher's internal/db/db.go.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"aura/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a *sql.DB opened against Aura's SQLite database, with the
// connection-level invariants (WAL, foreign keys, busy timeout) the whole
// repository layer relies on.
type DB struct {
	Conn *sql.DB
	path string
}

// Open connects to the database at url (a filesystem path, or ":memory:"
// for tests), retrying briefly on transient "database is locked" errors the
// way the teacher's connection helper does.
func Open(ctx context.Context, url string) (*DB, error) {
	dsn := url
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	var conn *sql.DB
	var err error
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		conn, err = sql.Open(driverName, dsn)
		if err == nil {
			err = conn.PingContext(ctx)
		}
		if err == nil {
			break
		}
		logging.L().Warn("db: connect retry", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", url, err)
	}

	conn.SetMaxOpenConns(1) // SQLite: single writer, WAL readers share the one handle safely
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("db: enable WAL: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA synchronous=NORMAL;"); err != nil {
		return nil, fmt.Errorf("db: set synchronous: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("db: enable foreign keys: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("db: set busy timeout: %w", err)
	}

	return &DB{Conn: conn, path: url}, nil
}

// Migrate applies every embedded migration in migrations/ using goose,
// idempotently.
func (d *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("db: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.Conn, "migrations"); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.Conn.Close()
}
