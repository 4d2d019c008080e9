package react

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseActionWithJSONInput(t *testing.T) {
	raw := `Thought: I should read the file first.
Action: file.read
Action Input: {"path": "main.go"}
`
	step := Parse(raw)
	require.Equal(t, "I should read the file first.", step.Thought)
	require.Equal(t, "file.read", step.Action)
	require.Equal(t, "main.go", step.ActionInput["path"])
	require.False(t, step.IsFinal())
}

func TestParseFinalAnswer(t *testing.T) {
	raw := `Thought: Done.
Final Answer: The bug is on line 42.`
	step := Parse(raw)
	require.True(t, step.IsFinal())
	require.Equal(t, "The bug is on line 42.", step.FinalAnswer)
}

func TestParseToleratesMalformedActionInput(t *testing.T) {
	raw := `Action: shell.execute
Action Input: run the tests please
`
	step := Parse(raw)
	require.Equal(t, "shell.execute", step.Action)
	require.Equal(t, "run the tests please", step.ActionInput["input"])
}

func TestParseUnstructuredTextBecomesFinalAnswer(t *testing.T) {
	step := Parse("I think the answer is 42.")
	require.True(t, step.IsFinal())
	require.Equal(t, "I think the answer is 42.", step.FinalAnswer)
}

func TestParseFencedJSONActionInput(t *testing.T) {
	raw := "Action: code.search\nAction Input: ```json\n{\"query\": \"auth\"}\n```\n"
	step := Parse(raw)
	require.Equal(t, "auth", step.ActionInput["query"])
}
