package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMarkdownAgentDefinition(t *testing.T) {
	src := `---
name: code-reviewer
description: Reviews diffs for correctness
provider: anthropic
model: claude-sonnet-4-5
tools:
  - file.read
  - code.search
max_steps: 10
---

You are a careful code reviewer. Focus on correctness, not style.
`
	def, err := ParseMarkdown("agents/code-reviewer.md", []byte(src))
	require.NoError(t, err)
	require.Equal(t, "code-reviewer", def.Name)
	require.Equal(t, 10, def.MaxSteps)
	require.ElementsMatch(t, []string{"file.read", "code.search"}, def.Tools)
	require.Contains(t, def.SystemPrompt, "careful code reviewer")
}

func TestParseMarkdownMissingName(t *testing.T) {
	src := "---\ndescription: no name here\n---\nbody\n"
	_, err := ParseMarkdown("agents/broken.md", []byte(src))
	require.Error(t, err)
}

func TestParseMarkdownMissingFrontMatter(t *testing.T) {
	_, err := ParseMarkdown("agents/broken.md", []byte("just a prompt, no header"))
	require.Error(t, err)
}
