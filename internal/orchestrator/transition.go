package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"aura/internal/aerr"
	"aura/internal/logging"
)

// Event names the command driving one state transition.
type Event string

const (
	EventAnalyze  Event = "analyze"
	EventPlan     Event = "plan"
	EventExecute  Event = "execute"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventCancel   Event = "cancel"
)

// validTransitions enumerates the state machine's edges per spec.md §4.6:
// analyze -> plan -> execute -> complete, with fail/cancel reachable from
// any non-terminal state.
var validTransitions = map[Status]map[Event]Status{
	StatusCreated:   {EventAnalyze: StatusAnalyzing, EventFail: StatusFailed, EventCancel: StatusCancelled},
	StatusAnalyzing: {EventComplete: StatusAnalyzed, EventFail: StatusFailed, EventCancel: StatusCancelled},
	StatusAnalyzed:  {EventPlan: StatusPlanning, EventFail: StatusFailed, EventCancel: StatusCancelled},
	StatusPlanning:  {EventComplete: StatusPlanned, EventFail: StatusFailed, EventCancel: StatusCancelled},
	StatusPlanned:   {EventExecute: StatusExecuting, EventFail: StatusFailed, EventCancel: StatusCancelled},
	StatusExecuting: {EventComplete: StatusCompleted, EventFail: StatusFailed, EventCancel: StatusCancelled},
}

// Orchestrator drives workflow transitions, serializing commands against
// the same workflow id while letting independent workflows run concurrently,
// per spec.md §5's concurrency model.
type Orchestrator struct {
	repo  *Repository
	locks sync.Map // workflow id -> *sync.Mutex
}

// New builds an Orchestrator backed by repo.
func New(repo *Repository) *Orchestrator {
	return &Orchestrator{repo: repo}
}

func (o *Orchestrator) lockFor(id string) *sync.Mutex {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// StepFunc performs the actual work of one transition (analyze/plan/execute),
// recording its outcome on wf; a non-nil error marks the transition failed.
type StepFunc func(ctx context.Context, wf *Workflow) error

// Transition applies event to the workflow identified by id, serialized
// against any other transition in flight for the same id. fn is invoked
// only if the transition is structurally valid; a failure in fn moves the
// workflow to Failed rather than leaving it stuck mid-state.
//
// Repeating the same command against a workflow already in the event's
// target state is idempotent: it returns the current workflow unchanged
// rather than erroring, since a caller may retry a command whose response
// was lost without knowing whether it applied.
func (o *Orchestrator) Transition(ctx context.Context, id string, event Event, fn StepFunc) (*Workflow, error) {
	mu := o.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	wf, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	edges, ok := validTransitions[wf.Status]
	if !ok {
		return nil, fmt.Errorf("%w: workflow %s is in terminal state %s", aerr.ErrInvalidTransition, id, wf.Status)
	}
	target, ok := edges[event]
	if !ok {
		if wf.Status == terminalTargetOf(event) {
			return wf, nil // idempotent repeat of an already-applied command
		}
		return nil, fmt.Errorf("%w: cannot apply %s from state %s", aerr.ErrInvalidTransition, event, wf.Status)
	}

	// Enter the in-flight state before running fn so a crash mid-step is
	// visible on restart as "stuck in Analyzing/Planning/Executing" rather
	// than silently appearing as if it never started.
	wf.Status = target
	if err := o.repo.Save(ctx, wf); err != nil {
		return nil, err
	}

	if event == EventCancel {
		// Cleanup (worktree removal) is best-effort: a workflow cancelled
		// before it ever reached Executing has nothing to remove, and a
		// cleanup failure shouldn't strand the workflow outside the
		// terminal state the user asked for.
		if fn != nil {
			if runErr := fn(ctx, wf); runErr != nil {
				logging.L().Warn("orchestrator: cancel cleanup failed", "workflow_id", id, "error", runErr)
			}
		}
		return wf, nil
	}

	if fn != nil {
		if runErr := fn(ctx, wf); runErr != nil {
			wf.Status = StatusFailed
			wf.Error = runErr.Error()
			if saveErr := o.repo.Save(ctx, wf); saveErr != nil {
				logging.L().Error("orchestrator: failed to persist failure state", "workflow_id", id, "error", saveErr)
			}
			return wf, fmt.Errorf("orchestrator: %s failed: %w", event, runErr)
		}
	}

	// fn may have advanced wf.Status itself (e.g. analyze moving straight
	// to Analyzed on success rather than stopping at the in-flight
	// Analyzing state); persist unconditionally so that case is captured
	// too, not just the case where it left wf.Status at target.
	if err := o.repo.Save(ctx, wf); err != nil {
		return nil, err
	}

	return wf, nil
}

func terminalTargetOf(event Event) Status {
	switch event {
	case EventAnalyze:
		return StatusAnalyzed
	case EventPlan:
		return StatusPlanned
	case EventExecute:
		return StatusExecuting
	case EventComplete:
		return StatusCompleted
	case EventCancel:
		return StatusCancelled
	default:
		return ""
	}
}
