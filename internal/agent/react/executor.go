package react

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aura/internal/agent"
	"aura/internal/agent/provider"
	"aura/internal/agent/tool"
	"aura/internal/agent/track"
	"aura/internal/logging"
)

var tracer = otel.Tracer("aura/agent/react")

// Transcript is the full record of one run: every parsed step plus the
// tool observation that followed it, persisted as the ReAct Step record
// spec.md's data model names.
type Transcript struct {
	Steps []TranscriptStep
}

// TranscriptStep pairs one model turn with its tool observation.
type TranscriptStep struct {
	Step        Step
	Observation string
	ToolError   bool
}

// Outcome is a completed run's result.
type Outcome struct {
	FinalAnswer string
	Transcript  Transcript
	TokensUsed  int64
	Terminated  bool // true if the run stopped due to MaxSteps or token exhaustion rather than a Final Answer
}

// Executor drives one agent definition's ReAct loop: Generate, parse,
// dispatch the requested tool (with mandatory working-directory
// injection), feed the observation back, repeat until a Final Answer, the
// step budget, or the token budget is exhausted. The loop shape is
// grounded on the teacher's pkg/harness/executor.go runLoop, re-expressed
// against a free-text parser instead of genkit's structured tool-calling.
type Executor struct {
	Def              *agent.Definition
	Provider         provider.Provider
	Tools            *tool.Registry
	WorkingDir       string
	MaxSteps         int
	MaxContextTokens int
}

// NewExecutor builds an Executor for one run of def.
func NewExecutor(def *agent.Definition, p provider.Provider, tools *tool.Registry, workingDir string, maxContextTokens int) *Executor {
	maxSteps := def.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 25
	}
	return &Executor{
		Def:              def,
		Provider:         p,
		Tools:            tools,
		WorkingDir:       workingDir,
		MaxSteps:         maxSteps,
		MaxContextTokens: maxContextTokens,
	}
}

// Run executes the loop against a task prompt, retrying from scratch with a
// "Previous Attempt Failed" prompt when the definition requests it and an
// attempt exhausts MaxSteps without a Final Answer. Total model calls are
// bounded by (1+Def.MaxRetries)*MaxSteps; transcripts from every attempt are
// concatenated in order onto the returned Outcome.
func (e *Executor) Run(ctx context.Context, task string) (*Outcome, error) {
	attempts := 1
	if e.Def.RetryOnFailure && e.Def.MaxRetries > 0 {
		attempts += e.Def.MaxRetries
	}

	var combined Transcript
	var tokensUsed int64
	currentTask := task

	for attempt := 1; attempt <= attempts; attempt++ {
		outcome, err := e.runAttempt(ctx, currentTask, attempt)
		if err != nil {
			return nil, err
		}
		combined.Steps = append(combined.Steps, outcome.Transcript.Steps...)
		tokensUsed += outcome.TokensUsed

		if !outcome.Terminated {
			outcome.Transcript = combined
			outcome.TokensUsed = tokensUsed
			return outcome, nil
		}
		if attempt == attempts {
			outcome.Transcript = combined
			outcome.TokensUsed = tokensUsed
			return outcome, nil
		}

		logging.L().Warn("react: attempt exhausted without final answer, retrying",
			"agent", e.Def.Name, "attempt", attempt, "max_attempts", attempts)
		currentTask = retryPrompt(task, outcome)
	}

	// Unreachable: the loop above always returns by attempt == attempts.
	return &Outcome{Transcript: combined, TokensUsed: tokensUsed, Terminated: true}, nil
}

// runAttempt runs a single pass of the loop with its own step and token
// budget, used directly by Run for the first attempt and again for each
// retry with a fresh prompt.
func (e *Executor) runAttempt(ctx context.Context, task string, attempt int) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "react.Run", trace.WithAttributes(
		attribute.String("agent.name", e.Def.Name),
		attribute.String("agent.model", e.Def.Model),
		attribute.Int("agent.attempt", attempt),
	))
	defer span.End()

	tokens := track.NewTokenTracker(e.MaxContextTokens)
	validation := track.NewValidationTracker(4)

	messages := []provider.Message{
		{Role: "system", Content: e.systemPrompt()},
		{Role: "user", Content: task},
	}

	var transcript Transcript

	for i := 0; i < e.MaxSteps; i++ {
		if rec := tokens.Recommend(); rec == track.RecommendTerminate {
			logging.L().Warn("react: terminating on token budget", "agent", e.Def.Name, "step", i)
			return &Outcome{Transcript: transcript, TokensUsed: tokens.Used(), Terminated: true}, nil
		}

		genResult, err := e.Provider.Generate(ctx, messages, provider.GenerateOptions{
			Model:       e.Def.Model,
			Temperature: e.Def.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("react: generate: %w", err)
		}
		tokens.Add(genResult.InputTokens + genResult.OutputTokens)

		step := Parse(genResult.Text)
		messages = append(messages, provider.Message{Role: "assistant", Content: genResult.Text})

		if step.IsFinal() {
			transcript.Steps = append(transcript.Steps, TranscriptStep{Step: step})
			return &Outcome{FinalAnswer: step.FinalAnswer, Transcript: transcript, TokensUsed: tokens.Used()}, nil
		}

		if step.Action == "" {
			// Parser fell back to a bare answer with no Action line; treat
			// it as final rather than looping forever on empty actions.
			transcript.Steps = append(transcript.Steps, TranscriptStep{Step: step})
			return &Outcome{FinalAnswer: step.Raw, Transcript: transcript, TokensUsed: tokens.Used()}, nil
		}

		inputJSON, _ := json.Marshal(step.ActionInput)
		fp := track.Fingerprint(step.Action, string(inputJSON))
		validation.Record(fp)
		if validation.IsDoomLooping() {
			observation := "repeated identical tool call detected; try a different approach"
			transcript.Steps = append(transcript.Steps, TranscriptStep{Step: step, Observation: observation, ToolError: true})
			messages = append(messages, provider.Message{Role: "user", Content: "Observation: " + observation})
			validation.Reset()
			continue
		}

		result, dispatchErr := e.Tools.Dispatch(ctx, step.Action, step.ActionInput, e.WorkingDir)
		observation := result.Output
		if dispatchErr != nil {
			observation = fmt.Sprintf("could not execute %s: %v", step.Action, dispatchErr)
		}

		transcript.Steps = append(transcript.Steps, TranscriptStep{
			Step: step, Observation: observation, ToolError: dispatchErr != nil || result.IsError,
		})
		messages = append(messages, provider.Message{Role: "user", Content: "Observation: " + observation})
	}

	return &Outcome{Transcript: transcript, TokensUsed: tokens.Used(), Terminated: true}, nil
}

// retryPrompt prefixes the original task with a summary of the failed
// attempt's last few steps, per the "Previous Attempt Failed" retry prompt.
func retryPrompt(task string, failed *Outcome) string {
	var sb strings.Builder
	sb.WriteString("Previous Attempt Failed\n")
	sb.WriteString("The previous attempt did not reach a Final Answer before running out of steps. ")
	sb.WriteString("Here is what it tried, most recent last:\n\n")

	steps := failed.Transcript.Steps
	start := 0
	if len(steps) > 5 {
		start = len(steps) - 5
	}
	for _, ts := range steps[start:] {
		if ts.Step.Action != "" {
			sb.WriteString(fmt.Sprintf("- Action: %s, Observation: %s\n", ts.Step.Action, ts.Observation))
		}
	}
	sb.WriteString("\nTry a different approach to finish the task below.\n\n")
	sb.WriteString(task)
	return sb.String()
}

func (e *Executor) systemPrompt() string {
	return e.Def.SystemPrompt + "\n\n" + reactFormatInstructions
}

const reactFormatInstructions = `Respond using this exact format:

Thought: <your reasoning>
Action: <tool name>
Action Input: <JSON object of arguments>

Or, once you have the final result:

Thought: <your reasoning>
Final Answer: <your answer>`
