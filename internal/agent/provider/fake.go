package provider

import "context"

// FakeProvider is a deterministic, script-driven Provider used by tests so
// the ReAct executor can be exercised without a network call.
type FakeProvider struct {
	Responses []string
	calls     int
}

// NewFake builds a FakeProvider that returns responses in order, repeating
// the last one once exhausted.
func NewFake(responses ...string) *FakeProvider {
	return &FakeProvider{Responses: responses}
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*GenerateResult, error) {
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	text := ""
	if idx >= 0 {
		text = f.Responses[idx]
	}
	return &GenerateResult{Text: text, InputTokens: len(text) / 4, OutputTokens: len(text) / 4}, nil
}
