// Package tool implements C4's Tool Registry: a flat name-keyed map of
// typed tools, generalized from the teacher's pkg/harness/tools.ToolRegistry
// (map[string]Tool) to the unification of typed and dynamic tools spec.md
// §9 calls for, with mandatory working-directory injection a caller's input
// can never override.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"aura/internal/aerr"
)

// Result is a tool invocation's outcome.
type Result struct {
	Output   string
	IsError  bool
	Metadata map[string]any
}

// Tool is the contract every built-in and agent-defined tool implements.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (Result, error)
}

// Registry holds every available tool by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds t under t.Name(), overwriting any prior registration.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: tool %q", aerr.ErrNotFound, name)
	}
	return t, nil
}

// Names lists every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	return out
}

// Dispatch validates input against the tool's schema, then injects
// workingDirectory into input immediately before executing, overwriting
// (never merging) any value the caller supplied — this is what makes the
// working-directory confinement guarantee hold regardless of tool input.
func (r *Registry) Dispatch(ctx context.Context, name string, input map[string]any, workingDirectory string) (Result, error) {
	t, err := r.Get(name)
	if err != nil {
		return Result{}, err
	}

	if schema := t.InputSchema(); schema != nil {
		if err := validate(schema, input); err != nil {
			return Result{IsError: true, Output: err.Error()}, fmt.Errorf("%w: %v", aerr.ErrInvalidArgument, err)
		}
	}

	if input == nil {
		input = map[string]any{}
	}
	input["working_directory"] = workingDirectory

	return t.Execute(ctx, input)
}

func validate(schema map[string]any, input map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewGoLoader(input)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		var msg string
		for _, e := range result.Errors() {
			msg += e.String() + "; "
		}
		return fmt.Errorf("schema validation failed: %s", msg)
	}
	return nil
}
