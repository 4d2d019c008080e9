// Package orchestrator implements the Workflow Orchestrator (C6): the
// durable state machine described in spec.md §4.6, persisted to SQLite via
// the repository pattern the teacher's internal/db/repositories package
// uses, hand-written against database/sql rather than sqlc-generated (see
// DESIGN.md) since this exercise cannot run a code generator.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aura/internal/aerr"
	"aura/internal/db"
)

// Status is a workflow's place in the state machine.
type Status string

const (
	StatusCreated   Status = "Created"
	StatusAnalyzing Status = "Analyzing"
	StatusAnalyzed  Status = "Analyzed"
	StatusPlanning  Status = "Planning"
	StatusPlanned   Status = "Planned"
	StatusExecuting Status = "Executing"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Workflow is a durable unit of orchestrated work over one workspace, per
// spec.md §3's Workflow entity.
type Workflow struct {
	ID              string
	WorkspaceID     string
	Title           string
	IssueRef        string
	Status          Status
	BranchName      string
	WorktreePath    string
	AnalyzedContext string
	Plan            string
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository is C6's durable store for workflows; their steps are kept by
// StepRepository.
type Repository struct {
	db *db.DB
}

// NewRepository wraps an open database connection.
func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d}
}

// Create persists a new workflow in StatusCreated.
func (r *Repository) Create(ctx context.Context, workspaceID, title, issueRef string) (*Workflow, error) {
	wf := &Workflow{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Title:       title,
		IssueRef:    issueRef,
		Status:      StatusCreated,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := r.db.Conn.ExecContext(ctx,
		`INSERT INTO workflows (id, workspace_id, title, issue_ref, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.WorkspaceID, wf.Title, wf.IssueRef, wf.Status,
		wf.CreatedAt.Format(time.RFC3339), wf.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create workflow: %w", err)
	}
	return wf, nil
}

// Get loads a workflow by id.
func (r *Repository) Get(ctx context.Context, id string) (*Workflow, error) {
	row := r.db.Conn.QueryRowContext(ctx,
		`SELECT id, workspace_id, title, issue_ref, status, branch_name, worktree_path,
		        analyzed_context, plan, error, created_at, updated_at
		 FROM workflows WHERE id = ?`, id)
	return scanWorkflow(row)
}

// List returns every workflow registered for workspaceID, newest first.
func (r *Repository) List(ctx context.Context, workspaceID string) ([]*Workflow, error) {
	rows, err := r.db.Conn.QueryContext(ctx,
		`SELECT id, workspace_id, title, issue_ref, status, branch_name, worktree_path,
		        analyzed_context, plan, error, created_at, updated_at
		 FROM workflows WHERE workspace_id = ? ORDER BY created_at DESC, rowid DESC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list workflows: %w", err)
	}
	defer rows.Close()

	var out []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// Save persists wf's full current state. Callers should go through
// Transition rather than Save directly whenever the change is a state
// transition, so invariants are checked in one place.
func (r *Repository) Save(ctx context.Context, wf *Workflow) error {
	wf.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx,
		`UPDATE workflows SET title=?, issue_ref=?, status=?, branch_name=?, worktree_path=?,
			analyzed_context=?, plan=?, error=?, updated_at=? WHERE id=?`,
		wf.Title, wf.IssueRef, wf.Status, wf.BranchName, wf.WorktreePath,
		wf.AnalyzedContext, wf.Plan, wf.Error, wf.UpdatedAt.Format(time.RFC3339), wf.ID)
	if err != nil {
		return fmt.Errorf("orchestrator: save workflow: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*Workflow, error) {
	var (
		wf      Workflow
		created string
		updated string
	)
	if err := row.Scan(&wf.ID, &wf.WorkspaceID, &wf.Title, &wf.IssueRef, &wf.Status,
		&wf.BranchName, &wf.WorktreePath, &wf.AnalyzedContext, &wf.Plan, &wf.Error,
		&created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, aerr.ErrNotFound
		}
		return nil, err
	}
	wf.CreatedAt, _ = time.Parse(time.RFC3339, created)
	wf.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &wf, nil
}
