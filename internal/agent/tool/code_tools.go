package tool

import (
	"context"
	"encoding/json"

	"aura/internal/index/query"
	"aura/internal/index/store"
)

// codeSearchTool wraps C3's Search operation for agent consumption.
type codeSearchTool struct {
	q           *query.Query
	st          *store.Store
	workspaceID string
}

// NewCodeSearch builds the code.search tool scoped to one workspace.
func NewCodeSearch(q *query.Query, st *store.Store, workspaceID string) Tool {
	return codeSearchTool{q: q, st: st, workspaceID: workspaceID}
}

func (codeSearchTool) Name() string        { return "code.search" }
func (codeSearchTool) Description() string { return "Search the indexed codebase for relevant chunks." }
func (codeSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []any{"query"},
	}
}

func (t codeSearchTool) Execute(ctx context.Context, input map[string]any) (Result, error) {
	results, err := t.q.Search(ctx, t.st, t.workspaceID, strArg(input, "query"), nil, 10)
	if err != nil {
		return Result{IsError: true, Output: err.Error()}, nil
	}
	data, _ := json.Marshal(results)
	return Result{Output: string(data)}, nil
}

// codeFindNodesTool wraps C3's FindNodes operation.
type codeFindNodesTool struct {
	q           *query.Query
	workspaceID string
}

// NewCodeFindNodes builds the code.find_nodes tool scoped to one workspace.
func NewCodeFindNodes(q *query.Query, workspaceID string) Tool {
	return codeFindNodesTool{q: q, workspaceID: workspaceID}
}

func (codeFindNodesTool) Name() string        { return "code.find_nodes" }
func (codeFindNodesTool) Description() string { return "Find code-graph nodes by name." }
func (codeFindNodesTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	}
}

func (t codeFindNodesTool) Execute(ctx context.Context, input map[string]any) (Result, error) {
	nodes, err := t.q.FindNodes(ctx, t.workspaceID, strArg(input, "name"), 20)
	if err != nil {
		return Result{IsError: true, Output: err.Error()}, nil
	}
	data, _ := json.Marshal(nodes)
	return Result{Output: string(data)}, nil
}

// codeFindImplementationsTool wraps C3's FindImplementations operation.
type codeFindImplementationsTool struct {
	q           *query.Query
	workspaceID string
}

// NewCodeFindImplementations builds the code.find_implementations tool.
func NewCodeFindImplementations(q *query.Query, workspaceID string) Tool {
	return codeFindImplementationsTool{q: q, workspaceID: workspaceID}
}

func (codeFindImplementationsTool) Name() string { return "code.find_implementations" }
func (codeFindImplementationsTool) Description() string {
	return "Find implementations of an interface by fully qualified name."
}
func (codeFindImplementationsTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"fqn": map[string]any{"type": "string"}},
		"required":   []any{"fqn"},
	}
}

func (t codeFindImplementationsTool) Execute(ctx context.Context, input map[string]any) (Result, error) {
	nodes, err := t.q.FindImplementations(ctx, t.workspaceID, strArg(input, "fqn"))
	if err != nil {
		return Result{IsError: true, Output: err.Error()}, nil
	}
	data, _ := json.Marshal(nodes)
	return Result{Output: string(data)}, nil
}

// codeTypeMembersTool wraps C3's TypeMembers operation.
type codeTypeMembersTool struct {
	q           *query.Query
	workspaceID string
}

// NewCodeTypeMembers builds the code.type_members tool.
func NewCodeTypeMembers(q *query.Query, workspaceID string) Tool {
	return codeTypeMembersTool{q: q, workspaceID: workspaceID}
}

func (codeTypeMembersTool) Name() string        { return "code.type_members" }
func (codeTypeMembersTool) Description() string { return "List members of a type by fully qualified name." }
func (codeTypeMembersTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"fqn": map[string]any{"type": "string"}},
		"required":   []any{"fqn"},
	}
}

func (t codeTypeMembersTool) Execute(ctx context.Context, input map[string]any) (Result, error) {
	nodes, err := t.q.TypeMembers(ctx, t.workspaceID, strArg(input, "fqn"))
	if err != nil {
		return Result{IsError: true, Output: err.Error()}, nil
	}
	data, _ := json.Marshal(nodes)
	return Result{Output: string(data)}, nil
}
