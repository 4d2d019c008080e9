package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"aura/internal/aerr"
)

// OpenAIProvider adapts github.com/openai/openai-go's chat completions API
// to the Provider contract.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAI builds a Provider backed by the OpenAI Chat Completions API.
func NewOpenAI(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*GenerateResult, error) {
	var turns []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case "system":
			turns = append(turns, openai.SystemMessage(m.Content))
		case "user":
			turns = append(turns, openai.UserMessage(m.Content))
		case "assistant":
			turns = append(turns, openai.AssistantMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    opts.Model,
		Messages: turns,
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			return nil, fmt.Errorf("%w: %v", aerr.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("%w: %v", aerr.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", aerr.ErrGenerationFailed)
	}

	return &GenerateResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
