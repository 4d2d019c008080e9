package orchestrator

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/react"
	"aura/internal/agent/tool"
	"aura/internal/gitworktree"
	"aura/internal/index/query"
	"aura/internal/index/store"
	"aura/internal/logging"
	"aura/internal/workspace"
)

// Deps bundles the other five components C6 wires together to carry out
// one workflow's analyze/plan/execute/complete transitions. NewTools
// builds a fresh tool registry scoped to one workspace id, since the
// code.search/find_nodes/find_implementations/type_members tools close
// over a fixed workspace id at construction time (spec.md §4.4's tools are
// per-workflow instances, not a single process-wide registry).
type Deps struct {
	Workspaces *workspace.Registry
	Query      *query.Query
	Store      *store.Store
	Agents     *agent.Registry
	Providers  *provider.Registry
	NewTools   func(workspaceID string) *tool.Registry
	Git        *gitworktree.Manager
	Steps      *StepRepository
	MaxRetries uint64
}

// Service is the orchestrator's operation surface: the analyze/plan/
// execute/complete verbs spec.md's Workflow Orchestrator names, each built
// as one Transition call with a StepFunc closing over Deps.
type Service struct {
	orch *Orchestrator
	deps Deps
}

// NewService builds a Service from a Repository and its component deps.
func NewService(repo *Repository, deps Deps) *Service {
	if deps.MaxRetries == 0 {
		deps.MaxRetries = 3
	}
	return &Service{orch: New(repo), deps: deps}
}

// Analyze runs the "analyzer" agent against task, with the workspace's
// code tools available, to produce AnalyzedContext, then advances the
// workflow to Analyzed.
func (s *Service) Analyze(ctx context.Context, workflowID, task string) (*Workflow, error) {
	return s.orch.Transition(ctx, workflowID, EventAnalyze, func(ctx context.Context, wf *Workflow) error {
		return s.runStep(ctx, wf, StepKindAnalyze, "analyzer", task, func(out string) {
			wf.AnalyzedContext = out
			wf.Status = StatusAnalyzed
		})
	})
}

// Plan runs the "planner" agent against AnalyzedContext to produce Plan,
// then advances the workflow to Planned.
func (s *Service) Plan(ctx context.Context, workflowID string) (*Workflow, error) {
	return s.orch.Transition(ctx, workflowID, EventPlan, func(ctx context.Context, wf *Workflow) error {
		task := "Analyzed context:\n" + wf.AnalyzedContext
		return s.runStep(ctx, wf, StepKindPlan, "planner", task, func(out string) {
			wf.Plan = out
			wf.Status = StatusPlanned
		})
	})
}

// Execute creates an isolated git worktree for the workflow, runs the
// "executor" agent against the Plan with its working directory pinned to
// that worktree, and commits the result. The workflow stays in Executing
// until Complete runs the squash/push/PR sequence spec.md's complete()
// names as its own step; a failure here leaves the worktree in place for
// inspection.
func (s *Service) Execute(ctx context.Context, workflowID string) (*Workflow, error) {
	return s.orch.Transition(ctx, workflowID, EventExecute, func(ctx context.Context, wf *Workflow) error {
		ws, err := s.deps.Workspaces.Get(ctx, wf.WorkspaceID)
		if err != nil {
			return fmt.Errorf("execute: resolve workspace: %w", err)
		}

		branch := BranchName(wf.Title, wf.ID[:8])
		path := ws.Path + "-" + branch
		wt, err := s.deps.Git.Create(ctx, ws.Path, branch, path, "HEAD")
		if err != nil {
			return fmt.Errorf("execute: create worktree: %w", err)
		}
		wf.BranchName = wt.Branch
		wf.WorktreePath = wt.Path

		def, err := s.deps.Agents.Get("executor")
		if err != nil {
			return fmt.Errorf("execute: resolve executor agent: %w", err)
		}
		p, err := s.deps.Providers.Resolve(def.Provider)
		if err != nil {
			return fmt.Errorf("execute: resolve provider: %w", err)
		}

		step, err := s.deps.Steps.Start(ctx, wf.ID, StepKindExecute, def.Name, wf.Plan)
		if err != nil {
			return err
		}

		tools := s.deps.NewTools(wf.WorkspaceID)
		var outcome *react.Outcome
		runErr := s.withRetry(ctx, step, func() error {
			exec := react.NewExecutor(def, p, tools, wt.Path, 200000)
			o, runErr := exec.Run(ctx, wf.Plan)
			if runErr != nil {
				return runErr
			}
			if o.Terminated && o.FinalAnswer == "" {
				return fmt.Errorf("execute: exhausted steps/retries without a final answer")
			}
			outcome = o
			return nil
		})
		if runErr != nil {
			_ = s.deps.Steps.Finish(ctx, step, StepStatusFailed, "", runErr.Error())
			return fmt.Errorf("execute: %w", runErr)
		}
		if err := s.deps.Steps.Finish(ctx, step, StepStatusSucceeded, outcome.FinalAnswer, ""); err != nil {
			return err
		}

		if err := s.deps.Git.Commit(ctx, wt, "aura: "+wf.Title); err != nil {
			logging.L().Warn("execute: nothing to commit or commit failed", "workflow_id", wf.ID, "error", err)
		}

		return nil
	})
}

// Complete squash-commits the workflow's worktree branch, pushes it, and
// opens a draft pull request, then advances the workflow to Completed —
// spec.md's complete(workflow) precondition is "all steps Succeeded",
// which here means Execute has already run without error. remoteURL and
// token authenticate the push; an empty remoteURL skips push/PR entirely
// and just finalizes the workflow, useful for workspaces with no remote.
func (s *Service) Complete(ctx context.Context, workflowID, remoteURL, token string) (*Workflow, error) {
	return s.orch.Transition(ctx, workflowID, EventComplete, func(ctx context.Context, wf *Workflow) error {
		if wf.WorktreePath == "" {
			return fmt.Errorf("complete: workflow has no worktree, run execute first")
		}

		steps, err := s.deps.Steps.ForWorkflow(ctx, wf.ID)
		if err != nil {
			return fmt.Errorf("complete: list steps: %w", err)
		}
		for _, st := range steps {
			if st.Status != StepStatusSucceeded && st.Status != StepStatusSkipped {
				return fmt.Errorf("complete: step %s is %s, not Succeeded or Skipped", st.ID, st.Status)
			}
		}

		wt := &gitworktree.Worktree{Branch: wf.BranchName, Path: wf.WorktreePath}

		if remoteURL == "" {
			return nil
		}

		ws, err := s.deps.Workspaces.Get(ctx, wf.WorkspaceID)
		if err != nil {
			return fmt.Errorf("complete: resolve workspace: %w", err)
		}

		if err := s.deps.Git.SquashHistory(ctx, wt, "main", "aura: "+wf.Title); err != nil {
			return fmt.Errorf("complete: squash: %w", err)
		}
		if err := s.deps.Git.Push(ctx, wt, remoteURL, token); err != nil {
			return fmt.Errorf("complete: push: %w", err)
		}
		prURL, err := s.deps.Git.OpenPullRequest(ctx, wt, ws.Path, wf.Title, wf.Plan, "main")
		if err != nil {
			return fmt.Errorf("complete: open pull request: %w", err)
		}
		logging.L().Info("complete: opened pull request", "workflow_id", wf.ID, "url", prURL)
		return nil
	})
}

// BranchName derives a stable branch name for a workflow's worktree,
// delegating slugification to gitworktree so both packages agree on format.
func BranchName(title, shortID string) string {
	return gitworktree.BranchName("aura", title, shortID)
}

// Cancel marks a non-terminal workflow as cancelled, then force-removes its
// worktree and branch if Execute ever created one, per spec.md §4.6's
// cancel(workflow): "removes the worktree (force)".
func (s *Service) Cancel(ctx context.Context, workflowID string) (*Workflow, error) {
	return s.orch.Transition(ctx, workflowID, EventCancel, func(ctx context.Context, wf *Workflow) error {
		if wf.WorktreePath == "" {
			return nil
		}
		ws, err := s.deps.Workspaces.Get(ctx, wf.WorkspaceID)
		if err != nil {
			return fmt.Errorf("cancel: resolve workspace: %w", err)
		}
		wt := &gitworktree.Worktree{Branch: wf.BranchName, Path: wf.WorktreePath}
		if err := s.deps.Git.Remove(ctx, ws.Path, wt, true); err != nil {
			return fmt.Errorf("cancel: remove worktree: %w", err)
		}
		return nil
	})
}

// runStep executes one agent-backed transition step with retry, recording
// it via StepRepository and applying onSuccess to the workflow when it
// completes.
func (s *Service) runStep(ctx context.Context, wf *Workflow, kind StepKind, agentName, task string, onSuccess func(output string)) error {
	def, err := s.deps.Agents.Get(agentName)
	if err != nil {
		return fmt.Errorf("%s: resolve agent: %w", kind, err)
	}
	p, err := s.deps.Providers.Resolve(def.Provider)
	if err != nil {
		return fmt.Errorf("%s: resolve provider: %w", kind, err)
	}

	step, err := s.deps.Steps.Start(ctx, wf.ID, kind, def.Name, task)
	if err != nil {
		return err
	}

	tools := s.deps.NewTools(wf.WorkspaceID)
	var outcome *react.Outcome
	runErr := s.withRetry(ctx, step, func() error {
		exec := react.NewExecutor(def, p, tools, wf.WorktreePath, 200000)
		o, runErr := exec.Run(ctx, task)
		if runErr != nil {
			return runErr
		}
		if o.Terminated && o.FinalAnswer == "" {
			return fmt.Errorf("%s: exhausted steps/retries without a final answer", kind)
		}
		outcome = o
		return nil
	})
	if runErr != nil {
		_ = s.deps.Steps.Finish(ctx, step, StepStatusFailed, "", runErr.Error())
		return fmt.Errorf("%s: %w", kind, runErr)
	}

	if err := s.deps.Steps.Finish(ctx, step, StepStatusSucceeded, outcome.FinalAnswer, ""); err != nil {
		return err
	}
	onSuccess(outcome.FinalAnswer)
	return nil
}

// withRetry retries fn with exponential backoff, stopping after MaxRetries
// retries (MaxRetries+1 attempts in all) or a ctx cancellation. Between attempts the step is persisted as
// Pending with the failure's error message (spec.md's "leave step Pending
// for retry"), then flipped back to Running as the next attempt starts, so
// a concurrent reader of the step row observes the retry rather than a
// silent in-process loop. Rate-limit and transient provider errors are the
// common case this guards against; a permanent parse or validation failure
// still exhausts its retries rather than being special-cased, since the
// agent may succeed on a retried prompt even then.
func (s *Service) withRetry(ctx context.Context, step *Step, fn func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.deps.MaxRetries), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		if attempt > 0 {
			if err := s.deps.Steps.RecordAttempt(ctx, step); err != nil {
				return backoff.Permanent(err)
			}
			if err := s.deps.Steps.MarkRunning(ctx, step); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempt++
		runErr := fn()
		if runErr != nil {
			if markErr := s.deps.Steps.MarkPending(ctx, step, runErr.Error()); markErr != nil {
				logging.L().Warn("orchestrator: failed to record step pending state", "step_id", step.ID, "error", markErr)
			}
		}
		return runErr
	}, b)
}

// ExecuteAllPending fans out Execute across every workflow in Planned
// status for workspaceID, running them concurrently via errgroup since
// each operates in its own isolated worktree and Transition already
// serializes per-workflow-id access.
func ExecuteAllPending(ctx context.Context, repo *Repository, s *Service, workspaceID string) error {
	workflows, err := repo.List(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("execute_all_pending: list workflows: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, wf := range workflows {
		if wf.Status != StatusPlanned {
			continue
		}
		wf := wf
		g.Go(func() error {
			_, err := s.Execute(gctx, wf.ID)
			return err
		})
	}
	return g.Wait()
}
