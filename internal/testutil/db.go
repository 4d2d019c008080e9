// Package testutil provides shared test fixtures so package tests don't
// each reinvent an in-memory migrated database and a seed workspace row.
package testutil

import (
	"context"
	"testing"

	"aura/internal/db"
)

// NewDB opens an in-memory migrated database, closing it on test cleanup.
func NewDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("testutil: open db: %v", err)
	}
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("testutil: migrate db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedWorkspace inserts a minimal workspace row with the given id, for
// tests that only need a workspace to exist to satisfy a foreign key.
func SeedWorkspace(t *testing.T, d *db.DB, id, path string) {
	t.Helper()
	_, err := d.Conn.ExecContext(context.Background(),
		`INSERT INTO workspaces (id, path, alias, tags, is_default, created_at, updated_at)
		 VALUES (?, ?, '', '[]', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`, id, path)
	if err != nil {
		t.Fatalf("testutil: seed workspace: %v", err)
	}
}
