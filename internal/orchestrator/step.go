package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"aura/internal/aerr"
	"aura/internal/db"
)

// StepKind names which operation a step records.
type StepKind string

const (
	StepKindAnalyze StepKind = "analyze"
	StepKindPlan    StepKind = "plan"
	StepKindExecute StepKind = "execute"
)

// StepStatus mirrors a step's own narrow lifecycle, independent of the
// parent workflow's Status.
type StepStatus string

const (
	StepStatusPending   StepStatus = "Pending"
	StepStatusRunning   StepStatus = "Running"
	StepStatusSucceeded StepStatus = "Succeeded"
	StepStatusFailed    StepStatus = "Failed"
	StepStatusSkipped   StepStatus = "Skipped"
)

// Step is one recorded unit of work within a Workflow: one agent run or
// tool dispatch attributable to a single analyze/plan/execute transition.
type Step struct {
	ID         string
	WorkflowID string
	Seq        int
	Kind       StepKind
	AgentName  string
	Input      string
	Output     string
	Status     StepStatus
	Attempts   int
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StepRepository persists Step rows.
type StepRepository struct {
	db *db.DB
}

// NewStepRepository wraps an open database connection.
func NewStepRepository(d *db.DB) *StepRepository {
	return &StepRepository{db: d}
}

// Start records a new step in StepStatusRunning, assigning it the next
// sequence number for its workflow.
func (r *StepRepository) Start(ctx context.Context, workflowID string, kind StepKind, agentName, input string) (*Step, error) {
	seq, err := r.nextSeq(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	st := &Step{
		ID:         ulid.Make().String(),
		WorkflowID: workflowID,
		Seq:        seq,
		Kind:       kind,
		AgentName:  agentName,
		Input:      input,
		Status:     StepStatusRunning,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = r.db.Conn.ExecContext(ctx,
		`INSERT INTO steps (id, workflow_id, seq, kind, agent_name, input, output, status, attempts, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?, ?, '', ?, ?)`,
		st.ID, st.WorkflowID, st.Seq, st.Kind, st.AgentName, st.Input, st.Status, st.Attempts,
		st.CreatedAt.Format(time.RFC3339), st.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: start step: %w", err)
	}
	return st, nil
}

func (r *StepRepository) nextSeq(ctx context.Context, workflowID string) (int, error) {
	var max sql.NullInt64
	if err := r.db.Conn.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM steps WHERE workflow_id = ?`, workflowID).Scan(&max); err != nil {
		return 0, fmt.Errorf("orchestrator: next step seq: %w", err)
	}
	return int(max.Int64) + 1, nil
}

// Finish records a step's terminal status, output, and final attempt count.
func (r *StepRepository) Finish(ctx context.Context, st *Step, status StepStatus, output, errMsg string) error {
	st.Status = status
	st.Output = output
	st.Error = errMsg
	st.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx,
		`UPDATE steps SET output=?, status=?, attempts=?, error=?, updated_at=? WHERE id=?`,
		st.Output, st.Status, st.Attempts, st.Error, st.UpdatedAt.Format(time.RFC3339), st.ID)
	if err != nil {
		return fmt.Errorf("orchestrator: finish step: %w", err)
	}
	return nil
}

// RecordAttempt bumps a step's attempt counter, used by the retry-with-
// backoff wrapper in operations.go before each retry of a failed step.
func (r *StepRepository) RecordAttempt(ctx context.Context, st *Step) error {
	st.Attempts++
	st.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx,
		`UPDATE steps SET attempts=?, updated_at=? WHERE id=?`,
		st.Attempts, st.UpdatedAt.Format(time.RFC3339), st.ID)
	return err
}

// MarkPending records a failed attempt that still has retries left: the
// step becomes externally observable as Pending (spec.md's "leave step
// Pending for retry") rather than disappearing into an in-process retry
// loop the caller can't see between attempts.
func (r *StepRepository) MarkPending(ctx context.Context, st *Step, errMsg string) error {
	st.Status = StepStatusPending
	st.Error = errMsg
	st.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx,
		`UPDATE steps SET status=?, error=?, updated_at=? WHERE id=?`,
		st.Status, st.Error, st.UpdatedAt.Format(time.RFC3339), st.ID)
	return err
}

// MarkRunning transitions a Pending step back to Running at the start of a
// retry attempt.
func (r *StepRepository) MarkRunning(ctx context.Context, st *Step) error {
	st.Status = StepStatusRunning
	st.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx,
		`UPDATE steps SET status=?, updated_at=? WHERE id=?`,
		st.Status, st.UpdatedAt.Format(time.RFC3339), st.ID)
	return err
}

// ForWorkflow lists every step recorded for a workflow, in sequence order.
func (r *StepRepository) ForWorkflow(ctx context.Context, workflowID string) ([]*Step, error) {
	rows, err := r.db.Conn.QueryContext(ctx,
		`SELECT id, workflow_id, seq, kind, agent_name, input, output, status, attempts, error, created_at, updated_at
		 FROM steps WHERE workflow_id = ? ORDER BY seq ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list steps: %w", err)
	}
	defer rows.Close()

	var out []*Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStep(row scanner) (*Step, error) {
	var (
		st      Step
		created string
		updated string
	)
	if err := row.Scan(&st.ID, &st.WorkflowID, &st.Seq, &st.Kind, &st.AgentName, &st.Input,
		&st.Output, &st.Status, &st.Attempts, &st.Error, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, aerr.ErrNotFound
		}
		return nil, err
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, created)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &st, nil
}
