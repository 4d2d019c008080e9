// Package scheduler drives cron-triggered background work: periodic
// workspace reindexing and scheduled workflow runs. Grounded on the
// teacher's internal/services/scheduler.go (robfig/cron with seconds
// precision, an in-memory entry-id map per trigger, logging around
// start/stop), generalized from "scheduled agent" to "scheduled trigger"
// since Aura has two distinct things worth scheduling rather than one.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"aura/internal/index/queue"
	"aura/internal/logging"
	"aura/internal/orchestrator"
)

// Scheduler owns a single cron instance shared by reindex triggers and
// workflow triggers, tracking each registered trigger's cron.EntryID so it
// can be removed later.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID

	workflows *orchestrator.Repository
	orch      *orchestrator.Service
	queue     *queue.Queue
}

// New builds a Scheduler. workflows/orch drive workflow triggers; q drives
// reindex triggers. Either may be nil if that trigger kind won't be used.
func New(workflows *orchestrator.Repository, orch *orchestrator.Service, q *queue.Queue) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		entries:   make(map[string]cron.EntryID),
		workflows: workflows,
		orch:      orch,
		queue:     q,
	}
}

// Start begins firing registered triggers. Safe to call with zero triggers
// registered; triggers added afterward take effect on their next tick.
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.L().Info("scheduler: started")
}

// Stop drains in-flight cron dispatch and clears all tracked entries. It
// does not cancel work already handed off to the orchestrator or queue.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.mu.Lock()
	s.entries = make(map[string]cron.EntryID)
	s.mu.Unlock()
	logging.L().Info("scheduler: stopped")
}

// AddWorkflowTrigger registers a cron expression that, on each tick,
// creates a fresh workflow for workspaceID from issueTemplate and drives it
// through enrich -> plan -> execute -> complete, per the cron-triggered
// workflow entrypoint named in the domain stack. A failure partway through
// the chain is logged and leaves the workflow in whatever state the failed
// step left it in (Failed, per Transition's own failure handling) rather
// than retried here; step-level retry already happens inside the
// orchestrator.
func (s *Scheduler) AddWorkflowTrigger(expr, triggerID, workspaceID, title, issueTemplate string) error {
	if s.workflows == nil || s.orch == nil {
		return fmt.Errorf("scheduler: workflow triggers require a workflow repository and orchestrator service")
	}
	entryID, err := s.cron.AddFunc(expr, func() {
		s.runWorkflowTrigger(workspaceID, title, issueTemplate)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	s.mu.Lock()
	s.entries[triggerID] = entryID
	s.mu.Unlock()
	logging.L().Info("scheduler: registered workflow trigger", "trigger_id", triggerID, "workspace_id", workspaceID, "cron", expr)
	return nil
}

// AddReindexTrigger registers a cron expression that submits workspaceID
// to the background indexing queue on each tick, for workspaces configured
// with a reindex interval rather than relying solely on git-change
// detection.
func (s *Scheduler) AddReindexTrigger(expr, triggerID, workspaceID string) error {
	if s.queue == nil {
		return fmt.Errorf("scheduler: reindex triggers require a queue")
	}
	entryID, err := s.cron.AddFunc(expr, func() {
		s.queue.Submit(context.Background(), workspaceID)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	s.mu.Lock()
	s.entries[triggerID] = entryID
	s.mu.Unlock()
	logging.L().Info("scheduler: registered reindex trigger", "trigger_id", triggerID, "workspace_id", workspaceID, "cron", expr)
	return nil
}

// RemoveTrigger unregisters a previously added trigger by the id it was
// registered with. A missing id is a no-op.
func (s *Scheduler) RemoveTrigger(triggerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.entries[triggerID]
	if !ok {
		return
	}
	s.cron.Remove(entryID)
	delete(s.entries, triggerID)
	logging.L().Info("scheduler: removed trigger", "trigger_id", triggerID)
}

func (s *Scheduler) runWorkflowTrigger(workspaceID, title, issueTemplate string) {
	ctx := context.Background()
	logging.L().Info("scheduler: firing workflow trigger", "workspace_id", workspaceID, "title", title)

	wf, err := s.workflows.Create(ctx, workspaceID, title, issueTemplate)
	if err != nil {
		logging.L().Error("scheduler: create workflow", "workspace_id", workspaceID, "error", err)
		return
	}
	id := wf.ID

	if _, err := s.orch.Analyze(ctx, id, issueTemplate); err != nil {
		logging.L().Error("scheduler: analyze", "workflow_id", id, "error", err)
		return
	}
	if _, err := s.orch.Plan(ctx, id); err != nil {
		logging.L().Error("scheduler: plan", "workflow_id", id, "error", err)
		return
	}
	if _, err := s.orch.Execute(ctx, id); err != nil {
		logging.L().Error("scheduler: execute", "workflow_id", id, "error", err)
		return
	}
	if _, err := s.orch.Complete(ctx, id, "", ""); err != nil {
		logging.L().Error("scheduler: complete", "workflow_id", id, "error", err)
		return
	}
	logging.L().Info("scheduler: workflow trigger finished", "workflow_id", id)
}

// cronLogger adapts cron's Logger interface to the structured logger used
// elsewhere in Aura, instead of cron's default stdlib *log.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.L().Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	logging.L().Error("cron: "+msg, args...)
}
