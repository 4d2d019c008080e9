// Package agent implements the declarative Agent Definition model (C4):
// agents are markdown files with a YAML front-matter header plus a prompt
// body, loaded and hot-reloaded from watched directories rather than
// expressed as a Go type hierarchy, per the "declarative agents, not class
// hierarchies" guidance spec.md's design notes carry forward.
package agent

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one parsed agent definition.
type Definition struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Model          string   `yaml:"model"`
	Provider       string   `yaml:"provider"`
	Tools          []string `yaml:"tools"`
	MaxSteps       int      `yaml:"max_steps"`
	MaxRetries     int      `yaml:"max_retries"`
	RetryOnFailure bool     `yaml:"retry_on_failure"`
	Temperature    float64  `yaml:"temperature"`
	SourcePath     string   `yaml:"-"`
	SystemPrompt   string   `yaml:"-"`
}

const frontMatterDelim = "---"

// ParseMarkdown parses a markdown agent definition: a YAML front-matter
// block bounded by "---" lines, followed by the system prompt body.
func ParseMarkdown(path string, data []byte) (*Definition, error) {
	text := string(data)
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), frontMatterDelim) {
		return nil, fmt.Errorf("agent: %s: missing front matter", path)
	}
	text = strings.TrimLeft(text, "\n")
	text = strings.TrimPrefix(text, frontMatterDelim)

	idx := strings.Index(text, "\n"+frontMatterDelim)
	if idx < 0 {
		return nil, fmt.Errorf("agent: %s: unterminated front matter", path)
	}
	header := text[:idx]
	body := strings.TrimPrefix(text[idx+len(frontMatterDelim)+1:], "\n")

	var def Definition
	if err := yaml.Unmarshal([]byte(header), &def); err != nil {
		return nil, fmt.Errorf("agent: %s: parse front matter: %w", path, err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("agent: %s: name is required", path)
	}
	if def.MaxSteps <= 0 {
		def.MaxSteps = 25
	}
	def.SourcePath = path
	def.SystemPrompt = strings.TrimSpace(body)
	return &def, nil
}
