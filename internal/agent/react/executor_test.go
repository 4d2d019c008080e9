package react

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/tool"
)

func TestExecutorRunsToFinalAnswer(t *testing.T) {
	def := &agent.Definition{Name: "tester", MaxSteps: 5, SystemPrompt: "You are a tester."}
	p := provider.NewFake(
		"Thought: checking\nFinal Answer: all good\n",
	)
	tools := tool.NewRegistry()

	exec := NewExecutor(def, p, tools, "/tmp", 100000)
	outcome, err := exec.Run(context.Background(), "run the checks")
	require.NoError(t, err)
	require.Equal(t, "all good", outcome.FinalAnswer)
	require.False(t, outcome.Terminated)
}

func TestExecutorDispatchesToolAndFeedsObservation(t *testing.T) {
	def := &agent.Definition{Name: "tester", MaxSteps: 5}
	p := provider.NewFake(
		"Thought: need to read\nAction: file.read\nAction Input: {\"path\": \"x.txt\"}\n",
		"Thought: got it\nFinal Answer: done\n",
	)
	tools := tool.NewRegistry()
	tools.Register(tool.NewFileWrite())
	tools.Register(tool.NewFileRead())

	dir := t.TempDir()
	// seed file.read's target via file.write dispatch directly
	_, err := tools.Dispatch(context.Background(), "file.write", map[string]any{"path": "x.txt", "content": "hi"}, dir)
	require.NoError(t, err)

	exec := NewExecutor(def, p, tools, dir, 100000)
	outcome, err := exec.Run(context.Background(), "read the file")
	require.NoError(t, err)
	require.Equal(t, "done", outcome.FinalAnswer)
	require.Len(t, outcome.Transcript.Steps, 2)
	require.Equal(t, "hi", outcome.Transcript.Steps[0].Observation)
}

func TestExecutorStopsAtMaxSteps(t *testing.T) {
	def := &agent.Definition{Name: "looper", MaxSteps: 2}
	p := provider.NewFake(
		"Action: shell.execute\nAction Input: {\"command\": \"echo 1\"}\n",
	)
	tools := tool.NewRegistry()

	exec := NewExecutor(def, p, tools, "/tmp", 100000)
	outcome, err := exec.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	require.True(t, outcome.Terminated)
	require.Empty(t, outcome.FinalAnswer)
}

// countingProvider wraps FakeProvider to count Generate calls, so retry
// accounting can be asserted against the exact number of model calls made.
type countingProvider struct {
	*provider.FakeProvider
	calls int
}

func (c *countingProvider) Generate(ctx context.Context, messages []provider.Message, opts provider.GenerateOptions) (*provider.GenerateResult, error) {
	c.calls++
	return c.FakeProvider.Generate(ctx, messages, opts)
}

func TestExecutorRetriesOnExhaustionWhenConfigured(t *testing.T) {
	def := &agent.Definition{
		Name: "looper", MaxSteps: 2, MaxRetries: 1, RetryOnFailure: true,
	}
	p := &countingProvider{FakeProvider: provider.NewFake(
		"Action: shell.execute\nAction Input: {\"command\": \"echo 1\"}\n",
	)}
	tools := tool.NewRegistry()

	exec := NewExecutor(def, p, tools, "/tmp", 100000)
	outcome, err := exec.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	require.True(t, outcome.Terminated)
	require.Empty(t, outcome.FinalAnswer)

	// (1 + MaxRetries) attempts * MaxSteps model calls per attempt.
	require.Equal(t, (1+def.MaxRetries)*def.MaxSteps, p.calls)
	// Steps from both attempts are concatenated onto the final outcome.
	require.Len(t, outcome.Transcript.Steps, (1+def.MaxRetries)*def.MaxSteps)
}

func TestExecutorDoesNotRetryByDefault(t *testing.T) {
	def := &agent.Definition{Name: "looper", MaxSteps: 2, MaxRetries: 3}
	p := &countingProvider{FakeProvider: provider.NewFake(
		"Action: shell.execute\nAction Input: {\"command\": \"echo 1\"}\n",
	)}
	tools := tool.NewRegistry()

	exec := NewExecutor(def, p, tools, "/tmp", 100000)
	outcome, err := exec.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	require.True(t, outcome.Terminated)
	require.Equal(t, def.MaxSteps, p.calls, "RetryOnFailure=false must not retry even with MaxRetries set")
}
