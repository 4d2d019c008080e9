// Package provider adapts concrete LLM clients (anthropic-sdk-go,
// openai-go) to the single chat/generate contract C4's ReAct executor
// drives, per spec.md §6's "LLM provider contract" and the explicit
// Non-goal against mandating one provider.
package provider

import (
	"context"
	"fmt"

	"aura/internal/aerr"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// GenerateOptions bounds a single generation call.
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// GenerateResult is a provider's response plus the token accounting the
// Token Tracker needs.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is the contract every LLM vendor adapter implements.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*GenerateResult, error)
}

// Registry resolves a provider by name, defaulting when none is specified.
type Registry struct {
	providers map[string]Provider
	def       string
}

// NewRegistry builds a registry with defaultName selected when a caller
// doesn't specify one.
func NewRegistry(defaultName string) *Registry {
	return &Registry{providers: map[string]Provider{}, def: defaultName}
}

// Register adds p under its own Name().
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Len reports how many providers are registered, used by callers deciding
// whether any real provider is configured before falling back to a stub.
func (r *Registry) Len() int {
	return len(r.providers)
}

// SetDefault changes which provider Resolve("") falls back to.
func (r *Registry) SetDefault(name string) {
	r.def = name
}

// Resolve returns the named provider, or the registry's default when name
// is empty.
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not registered", aerr.ErrProviderUnavailable, name)
	}
	return p, nil
}
