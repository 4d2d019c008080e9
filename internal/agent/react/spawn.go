package react

import (
	"context"
	"fmt"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/tool"
)

// Resolver looks up a named agent definition, implemented by
// agent.Registry in production and a fixed map in tests.
type Resolver interface {
	Get(name string) (*agent.Definition, error)
}

// spawnSubagentTool implements the spawn_subagent built-in: it resolves a
// named agent definition and runs a fresh Executor against it, mirroring
// the teacher's agent-as-tool pattern (an agent run wrapped behind the
// same Tool interface every other tool implements).
type spawnSubagentTool struct {
	registry   Resolver
	providers  *provider.Registry
	tools      *tool.Registry
	workingDir string
	maxTokens  int
	depth      int
	maxDepth   int
}

// NewSpawnSubagent builds the spawn_subagent tool. maxDepth bounds
// recursive spawning so a misbehaving agent definition can't spawn
// indefinitely nested sub-agents.
func NewSpawnSubagent(registry Resolver, providers *provider.Registry, tools *tool.Registry, workingDir string, maxTokens, depth, maxDepth int) tool.Tool {
	return spawnSubagentTool{
		registry: registry, providers: providers, tools: tools,
		workingDir: workingDir, maxTokens: maxTokens, depth: depth, maxDepth: maxDepth,
	}
}

func (spawnSubagentTool) Name() string { return "spawn_subagent" }
func (spawnSubagentTool) Description() string {
	return "Delegate a sub-task to a named sub-agent and return its final answer."
}
func (spawnSubagentTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{"type": "string"},
			"task":  map[string]any{"type": "string"},
		},
		"required": []any{"agent", "task"},
	}
}

func (t spawnSubagentTool) Execute(ctx context.Context, input map[string]any) (tool.Result, error) {
	if t.depth >= t.maxDepth {
		return tool.Result{IsError: true, Output: "maximum sub-agent nesting depth exceeded"}, nil
	}

	agentName, _ := input["agent"].(string)
	task, _ := input["task"].(string)

	def, err := t.registry.Get(agentName)
	if err != nil {
		return tool.Result{IsError: true, Output: fmt.Sprintf("unknown agent %q", agentName)}, nil
	}

	p, err := t.providers.Resolve(def.Provider)
	if err != nil {
		return tool.Result{IsError: true, Output: err.Error()}, nil
	}

	sub := NewExecutor(def, p, t.tools, t.workingDir, t.maxTokens)
	outcome, err := sub.Run(ctx, task)
	if err != nil {
		return tool.Result{IsError: true, Output: err.Error()}, nil
	}

	return tool.Result{Output: outcome.FinalAnswer, Metadata: map[string]any{"tokens_used": outcome.TokensUsed}}, nil
}
