package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"aura/internal/aerr"
	"aura/internal/db"
)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	d, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Conn.ExecContext(context.Background(),
		`INSERT INTO workspaces (id, path, alias, tags, is_default, created_at, updated_at)
		 VALUES ('ws-1', '/tmp/ws-1', '', '[]', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	return NewRepository(d), "ws-1"
}

func TestWorkflowCreateAndGet(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()

	wf, err := repo.Create(ctx, wsID, "fix the bug", "issue-42")
	require.NoError(t, err)
	require.Equal(t, StatusCreated, wf.Status)

	got, err := repo.Get(ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, wf.Title, got.Title)
	require.Equal(t, "issue-42", got.IssueRef)
}

func TestWorkflowGetMissingReturnsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, aerr.ErrNotFound)
}

func TestWorkflowListNewestFirst(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, wsID, "first", "")
	require.NoError(t, err)
	second, err := repo.Create(ctx, wsID, "second", "")
	require.NoError(t, err)

	list, err := repo.List(ctx, wsID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestTransitionHappyPath(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()
	orch := New(repo)

	wf, err := repo.Create(ctx, wsID, "ship it", "")
	require.NoError(t, err)

	wf, err = orch.Transition(ctx, wf.ID, EventAnalyze, func(ctx context.Context, wf *Workflow) error {
		wf.AnalyzedContext = "context gathered"
		wf.Status = StatusAnalyzed
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusAnalyzed, wf.Status)

	wf, err = orch.Transition(ctx, wf.ID, EventPlan, func(ctx context.Context, wf *Workflow) error {
		wf.Plan = "do the thing"
		wf.Status = StatusPlanned
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, wf.Status)

	wf, err = orch.Transition(ctx, wf.ID, EventExecute, func(ctx context.Context, wf *Workflow) error {
		wf.Status = StatusCompleted
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, wf.Status)
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()
	orch := New(repo)

	wf, err := repo.Create(ctx, wsID, "cannot skip ahead", "")
	require.NoError(t, err)

	_, err = orch.Transition(ctx, wf.ID, EventExecute, nil)
	require.ErrorIs(t, err, aerr.ErrInvalidTransition)
}

func TestTransitionIsIdempotentOnRepeat(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()
	orch := New(repo)

	wf, err := repo.Create(ctx, wsID, "repeat me", "")
	require.NoError(t, err)

	wf, err = orch.Transition(ctx, wf.ID, EventAnalyze, func(ctx context.Context, wf *Workflow) error {
		wf.Status = StatusAnalyzed
		return nil
	})
	require.NoError(t, err)

	again, err := orch.Transition(ctx, wf.ID, EventAnalyze, nil)
	require.NoError(t, err)
	require.Equal(t, StatusAnalyzed, again.Status)
}

func TestTransitionMovesToFailedOnStepError(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()
	orch := New(repo)

	wf, err := repo.Create(ctx, wsID, "will fail", "")
	require.NoError(t, err)

	_, err = orch.Transition(ctx, wf.ID, EventAnalyze, func(ctx context.Context, wf *Workflow) error {
		return errors.New("boom")
	})
	require.Error(t, err)

	got, getErr := repo.Get(ctx, wf.ID)
	require.NoError(t, getErr)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "boom", got.Error)
}

func TestTransitionCancelFromNonTerminalState(t *testing.T) {
	repo, wsID := newTestRepo(t)
	ctx := context.Background()
	orch := New(repo)

	wf, err := repo.Create(ctx, wsID, "abandon ship", "")
	require.NoError(t, err)

	wf, err = orch.Transition(ctx, wf.ID, EventCancel, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, wf.Status)
}
