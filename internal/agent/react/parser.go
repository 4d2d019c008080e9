// Package react implements C4's ReAct-style reasoning loop: free-text
// Thought/Action/Action Input/Observation turns, parsed tolerantly since
// spec.md §9 requires the output parser to degrade gracefully on malformed
// model text rather than aborting the run.
package react

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Step is one parsed model turn.
type Step struct {
	Thought     string
	Action      string
	ActionInput map[string]any
	FinalAnswer string
	Raw         string
}

// IsFinal reports whether this step concluded the run rather than
// requesting a tool call.
func (s Step) IsFinal() bool {
	return s.FinalAnswer != "" && s.Action == ""
}

var (
	reThought     = regexp.MustCompile(`(?is)Thought:\s*(.*?)(?:\nAction:|\nFinal Answer:|$)`)
	reAction      = regexp.MustCompile(`(?is)Action:\s*(.*?)\n`)
	reActionInput = regexp.MustCompile(`(?is)Action Input:\s*(.*?)(?:\nObservation:|$)`)
	reFinal       = regexp.MustCompile(`(?is)Final Answer:\s*(.*)`)
)

// Parse extracts a Step from raw model text. It never returns an error:
// an unparseable Action Input degrades to a single "input" string field
// rather than failing the step, and text with no recognizable structure at
// all is treated as a bare Final Answer, since a model that forgot the
// format is still trying to answer.
func Parse(raw string) Step {
	step := Step{Raw: raw}

	if m := reThought.FindStringSubmatch(raw); m != nil {
		step.Thought = strings.TrimSpace(m[1])
	}

	if m := reFinal.FindStringSubmatch(raw); m != nil {
		step.FinalAnswer = strings.TrimSpace(m[1])
		return step
	}

	actionMatch := reAction.FindStringSubmatch(raw)
	if actionMatch == nil {
		// No recognizable structure: treat the whole thing as an answer
		// rather than discarding the model's work.
		step.FinalAnswer = strings.TrimSpace(raw)
		return step
	}
	step.Action = strings.TrimSpace(actionMatch[1])

	inputMatch := reActionInput.FindStringSubmatch(raw)
	step.ActionInput = parseActionInput(inputMatch)

	return step
}

func parseActionInput(match []string) map[string]any {
	if match == nil {
		return map[string]any{}
	}
	text := strings.TrimSpace(match[1])
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj
	}

	// Not valid JSON: fall back to treating the whole blob as a single
	// positional string input rather than rejecting the step outright.
	return map[string]any{"input": text}
}
