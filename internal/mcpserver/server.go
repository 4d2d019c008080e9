// Package mcpserver exposes the Code Indexing Core and Workflow
// Orchestrator to outside agents over the Model Context Protocol, mirroring
// the teacher's internal/mcp_agents server: one *server.MCPServer with
// mcp.NewTool/AddTool registrations per tool, handlers returning
// mcp.NewToolResultText/mcp.NewToolResultError rather than transport faults
// for structured failures.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"aura/internal/agent"
	"aura/internal/index/query"
	"aura/internal/index/store"
	"aura/internal/logging"
	"aura/internal/orchestrator"
)

// Deps bundles the components the MCP surface reads from and drives.
type Deps struct {
	Query        *query.Query
	Store        *store.Store
	Workflows    *orchestrator.Repository
	Orchestrator *orchestrator.Service
	Agents       *agent.Registry
	Embedder     query.EmbeddingProvider // optional
}

// Server wraps a configured *server.MCPServer exposing aura_search,
// aura_navigate, aura_inspect, aura_refactor, aura_workflow, and aura_docs.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New builds the MCP server and registers every Aura tool.
func New(deps Deps) *Server {
	s := &Server{
		mcp: server.NewMCPServer("Aura", "0.1.0",
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		deps: deps,
	}
	s.registerSearch()
	s.registerNavigate()
	s.registerInspect()
	s.registerRefactor()
	s.registerWorkflow()
	s.registerDocs()
	return s
}

// ServeStdio runs the server over stdio, the transport an agent host
// spawns Aura under — matches the teacher's stdio-first MCP wiring for
// locally-run tool servers.
func (s *Server) ServeStdio() error {
	logging.L().Info("mcpserver: serving over stdio")
	return server.ServeStdio(s.mcp)
}

func argString(req mcp.CallToolRequest, key string) string {
	if req.Params.Arguments == nil {
		return ""
	}
	m, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func argInt(req mcp.CallToolRequest, key string, def int) int {
	if req.Params.Arguments == nil {
		return def
	}
	m, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

func missingArg(name string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("missing required argument %q", name))
}

func (s *Server) registerSearch() {
	t := mcp.NewTool("aura_search",
		mcp.WithDescription("Search the indexed workspace for relevant code or documentation chunks"),
		mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text search query")),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wsID, q := argString(req, "workspace_id"), argString(req, "query")
		if wsID == "" {
			return missingArg("workspace_id"), nil
		}
		if q == "" {
			return missingArg("query"), nil
		}
		limit := argInt(req, "limit", 10)
		results, err := s.deps.Query.Search(ctx, s.deps.Store, wsID, q, s.deps.Embedder, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results), nil
	})
}

func (s *Server) registerNavigate() {
	t := mcp.NewTool("aura_navigate",
		mcp.WithDescription("Navigate the code graph: references, definition, or implementations of a symbol"),
		mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace id")),
		mcp.WithString("operation", mcp.Required(), mcp.Description("references|definition|implementations")),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name or fully-qualified name")),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wsID, op, sym := argString(req, "workspace_id"), argString(req, "operation"), argString(req, "symbol")
		if wsID == "" {
			return missingArg("workspace_id"), nil
		}
		if sym == "" {
			return missingArg("symbol"), nil
		}
		switch op {
		case "definition":
			nodes, err := s.deps.Query.FindNodes(ctx, wsID, sym, 5)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(nodes), nil
		case "implementations":
			nodes, err := s.deps.Query.FindImplementations(ctx, wsID, sym)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(nodes), nil
		case "references":
			results, err := s.deps.Query.Search(ctx, s.deps.Store, wsID, sym, s.deps.Embedder, 25)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(results), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown navigate operation %q", op)), nil
		}
	})
}

func (s *Server) registerInspect() {
	t := mcp.NewTool("aura_inspect",
		mcp.WithDescription("Inspect the code graph: list a type's members, or list all indexed types"),
		mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace id")),
		mcp.WithString("operation", mcp.Required(), mcp.Description("type_members|list_types")),
		mcp.WithString("type", mcp.Description("Fully-qualified type name, required for type_members")),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wsID, op := argString(req, "workspace_id"), argString(req, "operation")
		if wsID == "" {
			return missingArg("workspace_id"), nil
		}
		switch op {
		case "type_members":
			typ := argString(req, "type")
			if typ == "" {
				return missingArg("type"), nil
			}
			nodes, err := s.deps.Query.TypeMembers(ctx, wsID, typ)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(nodes), nil
		case "list_types":
			nodes, err := s.deps.Query.FindNodes(ctx, wsID, "", 0)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var types []query.Node
			for _, n := range nodes {
				if n.Kind == "Struct" || n.Kind == "Interface" {
					types = append(types, n)
				}
			}
			return jsonResult(types), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown inspect operation %q", op)), nil
		}
	})
}

func (s *Server) registerRefactor() {
	t := mcp.NewTool("aura_refactor",
		mcp.WithDescription("Propose a refactor: rename returns a plan listing the affected files and rewrites no file; extract_method/extract_variable return a structured not-supported error"),
		mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace id")),
		mcp.WithString("operation", mcp.Required(), mcp.Description("rename|extract_method|extract_variable")),
		mcp.WithString("target", mcp.Description("Symbol to rename, required for rename")),
		mcp.WithString("new_name", mcp.Description("Replacement name, required for rename")),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wsID, op := argString(req, "workspace_id"), argString(req, "operation")
		if wsID == "" {
			return missingArg("workspace_id"), nil
		}
		switch op {
		case "rename":
			target, newName := argString(req, "target"), argString(req, "new_name")
			if target == "" {
				return missingArg("target"), nil
			}
			if newName == "" {
				return missingArg("new_name"), nil
			}
			nodes, err := s.deps.Query.FindNodes(ctx, wsID, target, 0)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			files := map[string]bool{}
			for _, n := range nodes {
				if strings.EqualFold(n.Name, target) {
					files[n.SourcePath] = true
				}
			}
			return jsonResult(map[string]any{
				"status":               "plan_only",
				"affected_files":       keys(files),
				"note":                 "aura_refactor returns the rewrite plan; applying it is left to the calling agent's file.edit tool so the change lands inside its own worktree",
				"suggested_occurrence": target + " -> " + newName,
			}), nil
		case "extract_method", "extract_variable":
			return mcp.NewToolResultError(op + " requires control-flow-aware AST rewriting that is not yet implemented"), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown refactor operation %q", op)), nil
		}
	})
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (s *Server) registerWorkflow() {
	t := mcp.NewTool("aura_workflow",
		mcp.WithDescription("List, inspect, or create Aura workflows"),
		mcp.WithString("operation", mcp.Required(), mcp.Description("list|get|create")),
		mcp.WithString("workspace_id", mcp.Description("Required for list and create")),
		mcp.WithString("workflow_id", mcp.Description("Required for get")),
		mcp.WithString("title", mcp.Description("Required for create")),
		mcp.WithString("issue_ref", mcp.Description("Optional issue reference for create")),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		switch argString(req, "operation") {
		case "list":
			wsID := argString(req, "workspace_id")
			if wsID == "" {
				return missingArg("workspace_id"), nil
			}
			wfs, err := s.deps.Workflows.List(ctx, wsID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(wfs), nil
		case "get":
			id := argString(req, "workflow_id")
			if id == "" {
				return missingArg("workflow_id"), nil
			}
			wf, err := s.deps.Workflows.Get(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(wf), nil
		case "create":
			wsID, title := argString(req, "workspace_id"), argString(req, "title")
			if wsID == "" {
				return missingArg("workspace_id"), nil
			}
			if title == "" {
				return missingArg("title"), nil
			}
			wf, err := s.deps.Workflows.Create(ctx, wsID, title, argString(req, "issue_ref"))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(wf), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown workflow operation %q", argString(req, "operation"))), nil
		}
	})
}

func (s *Server) registerDocs() {
	t := mcp.NewTool("aura_docs",
		mcp.WithDescription("List the agent definitions currently loaded, with their descriptions"),
	)
	s.mcp.AddTool(t, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var out []map[string]string
		for _, def := range s.deps.Agents.All() {
			out = append(out, map[string]string{
				"name":        def.Name,
				"description": def.Description,
				"provider":    def.Provider,
				"model":       def.Model,
			})
		}
		return jsonResult(out), nil
	})
}
