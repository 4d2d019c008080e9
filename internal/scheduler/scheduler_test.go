package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/tool"
	"aura/internal/gateway"
	"aura/internal/gitworktree"
	"aura/internal/index/queue"
	"aura/internal/orchestrator"
	"aura/internal/testutil"
	"aura/internal/workspace"
)

func newTestAgents(t *testing.T) *agent.Registry {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"analyzer", "planner", "executor"} {
		path := filepath.Join(dir, name+".md")
		content := []byte(testAgentMarkup(name))
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("write agent fixture: %v", err)
		}
	}
	reg := agent.NewRegistry()
	if err := reg.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	return reg
}

func testAgentMarkup(name string) string {
	return "---\nname: " + name + "\ndescription: test fixture\nprovider: fake\nmodel: fake-model\n---\nYou are a test agent.\nFinal Answer: ok\n"
}

func newTestScheduler(t *testing.T) (*Scheduler, *orchestrator.Repository) {
	t.Helper()
	d := testutil.NewDB(t)
	testutil.SeedWorkspace(t, d, "ws-1", t.TempDir())

	workflows := orchestrator.NewRepository(d)
	steps := orchestrator.NewStepRepository(d)
	workspaces := workspace.NewRegistry(d)

	providers := provider.NewRegistry("fake")
	providers.Register(provider.NewFake("Final Answer: ok\n"))

	newTools := func(workspaceID string) *tool.Registry { return tool.NewRegistry() }

	orch := orchestrator.NewService(workflows, orchestrator.Deps{
		Workspaces: workspaces,
		Agents:     newTestAgents(t),
		Providers:  providers,
		NewTools:   newTools,
		Git:        gitworktree.New(gateway.New()),
		Steps:      steps,
		MaxRetries: 1,
	})
	q := queue.New(func(ctx context.Context, workspaceID string) error { return nil })

	return New(workflows, orch, q), workflows
}

func TestAddReindexTriggerValidatesCron(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.AddReindexTrigger("not a cron expression", "t1", "ws-1"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if err := s.AddReindexTrigger("*/30 * * * * *", "t1", "ws-1"); err != nil {
		t.Fatalf("AddReindexTrigger: %v", err)
	}
}

func TestAddWorkflowTriggerValidatesCron(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.AddWorkflowTrigger("bogus", "t1", "ws-1", "nightly sweep", "find dead code"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if err := s.AddWorkflowTrigger("0 0 3 * * *", "t1", "ws-1", "nightly sweep", "find dead code"); err != nil {
		t.Fatalf("AddWorkflowTrigger: %v", err)
	}
}

func TestRemoveTriggerIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.AddReindexTrigger("*/30 * * * * *", "t1", "ws-1"); err != nil {
		t.Fatalf("AddReindexTrigger: %v", err)
	}
	s.RemoveTrigger("t1")
	s.RemoveTrigger("t1") // second removal of the same id must not panic
	s.RemoveTrigger("never-added")
}

func TestStartStopLifecycle(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("entries after Stop() = %d, want 0", n)
	}
}

func TestAddWorkflowTriggerFiresAndCreatesWorkflow(t *testing.T) {
	s, workflows := newTestScheduler(t)

	if err := s.AddWorkflowTrigger("*/1 * * * * *", "t1", "ws-1", "sweep", "find dead code"); err != nil {
		t.Fatalf("AddWorkflowTrigger: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		wfs, err := workflows.List(context.Background(), "ws-1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(wfs) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("workflow trigger never created a workflow within the deadline")
}

func TestAddTriggerWithoutDepsErrors(t *testing.T) {
	q := queue.New(func(ctx context.Context, workspaceID string) error { return nil })
	s := New(nil, nil, q)
	if err := s.AddWorkflowTrigger("*/30 * * * * *", "t1", "ws-1", "title", "issue"); err == nil {
		t.Fatal("expected error when workflows/orchestrator are nil")
	}

	s2 := New(nil, nil, nil)
	if err := s2.AddReindexTrigger("*/30 * * * * *", "t1", "ws-1"); err == nil {
		t.Fatal("expected error when queue is nil")
	}
}
