package main

import (
	"context"
	"fmt"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/tool"
	"aura/internal/config"
	"aura/internal/db"
	"aura/internal/gateway"
	"aura/internal/gitworktree"
	"aura/internal/index/query"
	"aura/internal/index/queue"
	"aura/internal/index/store"
	"aura/internal/orchestrator"
	"aura/internal/scheduler"
	"aura/internal/workspace"
)

// app bundles every wired component a subcommand might need, built once
// from config the way the teacher's RunE handlers build their service
// graph from a loaded *config.Config before doing any work.
type app struct {
	cfg        *config.Config
	db         *db.DB
	workspaces *workspace.Registry
	gateway    *gateway.Gateway
	git        *gitworktree.Manager
	store      *store.Store
	query      *query.Query
	agents     *agent.Registry
	providers  *provider.Registry
	tools      *tool.Registry
	workflows  *orchestrator.Repository
	steps      *orchestrator.StepRepository
	orch       *orchestrator.Service
	queue      *queue.Queue
	scheduler  *scheduler.Scheduler
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		dbURL = ":memory:"
	}
	d, err := db.Open(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := d.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	gw := gateway.New()

	agents := agent.NewRegistry()
	for _, dir := range cfg.Agents.Directories {
		if err := agents.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("load agent definitions from %s: %w", dir, err)
		}
	}

	providers := provider.NewRegistry(cfg.Providers.Default)
	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		providers.Register(provider.NewAnthropic(key, cfg.Providers.Anthropic.BaseURL))
	}
	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		providers.Register(provider.NewOpenAI(key, cfg.Providers.OpenAI.BaseURL))
	}
	if providers.Len() == 0 {
		providers.Register(provider.NewFake("Final Answer: no LLM provider configured"))
		providers.SetDefault("fake")
	}

	st := store.New(d)
	qr := query.New(d)

	// newTools builds a fresh registry scoped to one workspace id: the
	// file/shell built-ins are workspace-agnostic, but the code.* tools
	// close over a fixed workspace id per spec.md's per-workflow tool
	// binding, so they can't live in one process-wide registry.
	newTools := func(workspaceID string) *tool.Registry {
		tools := tool.NewRegistry()
		tools.Register(tool.NewFileRead())
		tools.Register(tool.NewFileWrite())
		tools.Register(tool.NewFileEdit())
		tools.Register(tool.NewShellExecute(gw))
		tools.Register(tool.NewCodeSearch(qr, st, workspaceID))
		tools.Register(tool.NewCodeFindNodes(qr, workspaceID))
		tools.Register(tool.NewCodeFindImplementations(qr, workspaceID))
		tools.Register(tool.NewCodeTypeMembers(qr, workspaceID))
		return tools
	}

	workflows := orchestrator.NewRepository(d)
	steps := orchestrator.NewStepRepository(d)
	ws := workspace.NewRegistry(d)
	git := gitworktree.New(gw)

	orch := orchestrator.NewService(workflows, orchestrator.Deps{
		Workspaces: ws,
		Query:      qr,
		Store:      st,
		Agents:     agents,
		Providers:  providers,
		NewTools:   newTools,
		Git:        git,
		Steps:      steps,
		MaxRetries: uint64(cfg.Harness.MaxRetries),
	})

	idxQueue := queue.New(func(ctx context.Context, workspaceID string) error {
		w, err := ws.Get(ctx, workspaceID)
		if err != nil {
			return err
		}
		_, err = indexWorkspace(ctx, cfg, st, workspaceID, w.Path)
		return err
	})
	sched := scheduler.New(workflows, orch, idxQueue)
	for _, t := range cfg.Triggers {
		if t.Reindex {
			if err := sched.AddReindexTrigger(t.Cron, t.ID, t.WorkspaceID); err != nil {
				return nil, fmt.Errorf("configure trigger %s: %w", t.ID, err)
			}
			continue
		}
		if err := sched.AddWorkflowTrigger(t.Cron, t.ID, t.WorkspaceID, t.Title, t.IssueTemplate); err != nil {
			return nil, fmt.Errorf("configure trigger %s: %w", t.ID, err)
		}
	}

	return &app{
		cfg: cfg, db: d, workspaces: ws, gateway: gw, git: git,
		store: st, query: qr, agents: agents, providers: providers,
		tools: newTools(""), workflows: workflows, steps: steps, orch: orch,
		queue: idxQueue, scheduler: sched,
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}
