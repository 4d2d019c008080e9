// Package queue implements C3's background indexing jobs: each accepted
// submission runs in its own goroutine, with coalescing so a workspace
// already queued or running absorbs a repeat submission instead of running
// twice. Jobs for different workspaces run concurrently; there is no ordered
// backlog, so a repeat submission is never queued behind the active job.
package queue

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"aura/internal/logging"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued  Status = "Queued"
	StatusRunning Status = "Running"
	StatusDone    Status = "Done"
	StatusFailed  Status = "Failed"
)

// Job is one submitted (re)index request.
type Job struct {
	ID          string
	WorkspaceID string
	Status      Status
	Err         error
}

// Func performs the actual (re)indexing work for a workspace.
type Func func(ctx context.Context, workspaceID string) error

// Queue runs at most one indexing job per workspace at a time.
type Queue struct {
	mu      sync.Mutex
	current map[string]*Job // workspaceID -> active/queued job
	work    Func
}

// New builds a Queue that dispatches to work for each submitted job.
func New(work Func) *Queue {
	return &Queue{current: map[string]*Job{}, work: work}
}

// Submit enqueues workspaceID for (re)indexing. If a job for this workspace
// is already Queued or Running, Submit returns that job's id instead of
// starting a second run.
func (q *Queue) Submit(ctx context.Context, workspaceID string) *Job {
	q.mu.Lock()
	if existing, ok := q.current[workspaceID]; ok && (existing.Status == StatusQueued || existing.Status == StatusRunning) {
		q.mu.Unlock()
		return existing
	}
	job := &Job{ID: ulid.Make().String(), WorkspaceID: workspaceID, Status: StatusQueued}
	q.current[workspaceID] = job
	q.mu.Unlock()

	go q.run(ctx, job)
	return job
}

func (q *Queue) run(ctx context.Context, job *Job) {
	q.mu.Lock()
	job.Status = StatusRunning
	q.mu.Unlock()

	err := q.work(ctx, job.WorkspaceID)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		job.Status = StatusFailed
		job.Err = err
		logging.L().Error("index: job failed", "workspace_id", job.WorkspaceID, "job_id", job.ID, "error", err)
		return
	}
	job.Status = StatusDone
}

// Status returns the current state of workspaceID's most recent job, if any.
func (q *Queue) Status(workspaceID string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.current[workspaceID]
	return j, ok
}
