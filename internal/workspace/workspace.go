// Package workspace implements the Workspace Registry (C2): canonical
// identity assignment for a working directory and the CRUD surface used by
// every other component to resolve a workspace by id, path, or alias.
package workspace

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"aura/internal/aerr"
	"aura/internal/db"
)

// Workspace is a registered working directory, per spec.md §3.
type Workspace struct {
	ID        string
	Path      string
	Alias     string
	Tags      []string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registry is the SQLite-backed C2 implementation.
type Registry struct {
	db *db.DB
}

// NewRegistry wraps an open database connection.
func NewRegistry(d *db.DB) *Registry {
	return &Registry{db: d}
}

// CanonicalID derives the stable workspace id from an absolute path: the
// path is cleaned, forward-slashed, lowercased on case-insensitive host
// families (Windows, macOS), then hashed. Two different on-disk paths that
// refer to the same directory on a case-insensitive filesystem collide to
// the same id by construction.
func CanonicalID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve absolute path: %w", err)
	}
	clean := filepath.ToSlash(filepath.Clean(abs))
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		clean = strings.ToLower(clean)
	}
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:8]), nil
}

// Register creates or returns the existing workspace rooted at path.
// Re-registering the same canonical path is idempotent and returns the
// existing row rather than erroring, the way a registry is expected to
// behave for an operation a caller may retry.
func (r *Registry) Register(ctx context.Context, path, alias string, tags []string) (*Workspace, error) {
	id, err := CanonicalID(path)
	if err != nil {
		return nil, wrapErr(err)
	}
	if existing, err := r.Get(ctx, id); err == nil {
		return existing, nil
	} else if err != aerr.ErrNotFound {
		return nil, err
	}

	abs, _ := filepath.Abs(path)
	now := time.Now().UTC()
	tagsJSON, _ := json.Marshal(tags)

	_, err = r.db.Conn.ExecContext(ctx,
		`INSERT INTO workspaces (id, path, alias, tags, is_default, created_at, updated_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, 0, ?, ?)`,
		id, abs, alias, string(tagsJSON), now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: alias %q already registered", aerr.ErrAlreadyExists, alias)
		}
		return nil, fmt.Errorf("workspace: insert: %w", err)
	}

	return r.Get(ctx, id)
}

// Get looks a workspace up by id.
func (r *Registry) Get(ctx context.Context, id string) (*Workspace, error) {
	return r.scanOne(ctx, "id = ?", id)
}

// GetByAlias looks a workspace up by its human-friendly alias.
func (r *Registry) GetByAlias(ctx context.Context, alias string) (*Workspace, error) {
	return r.scanOne(ctx, "alias = ?", alias)
}

// GetByPath resolves the canonical id for path and looks it up.
func (r *Registry) GetByPath(ctx context.Context, path string) (*Workspace, error) {
	id, err := CanonicalID(path)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// List returns every registered workspace, ordered by creation time.
func (r *Registry) List(ctx context.Context) ([]*Workspace, error) {
	rows, err := r.db.Conn.QueryContext(ctx,
		`SELECT id, path, COALESCE(alias,''), tags, is_default, created_at, updated_at
		 FROM workspaces ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("workspace: list: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		ws, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Remove deletes a workspace registration. It does not touch the filesystem.
func (r *Registry) Remove(ctx context.Context, id string) error {
	res, err := r.db.Conn.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("workspace: remove: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return aerr.ErrNotFound
	}
	return nil
}

func (r *Registry) scanOne(ctx context.Context, where string, arg any) (*Workspace, error) {
	row := r.db.Conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, path, COALESCE(alias,''), tags, is_default, created_at, updated_at
		 FROM workspaces WHERE %s`, where), arg)
	ws, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, aerr.ErrNotFound
	}
	return ws, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(row scanner) (*Workspace, error) {
	var (
		ws        Workspace
		tagsJSON  string
		isDefault int
		created   string
		updated   string
	)
	if err := row.Scan(&ws.ID, &ws.Path, &ws.Alias, &tagsJSON, &isDefault, &created, &updated); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &ws.Tags)
	ws.IsDefault = isDefault != 0
	ws.CreatedAt, _ = time.Parse(time.RFC3339, created)
	ws.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &ws, nil
}

func wrapErr(err error) error {
	return fmt.Errorf("%w: %v", aerr.ErrInvalidArgument, err)
}
