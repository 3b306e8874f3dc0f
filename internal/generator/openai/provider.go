// Package openai adapts the official OpenAI Go SDK's chat completions API as
// a generator.Provider — the same SDK dependency the embedding adapter uses,
// reused here for chat.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyResponse is returned when the chat completion response has no
// choices.
var ErrEmptyResponse = errors.New("openai: empty chat completion response")

const defaultModel = openaisdk.ChatModelGPT4oMini

// Provider calls the OpenAI chat completions API.
type Provider struct {
	sdk   openaisdk.Client
	model string
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithModel sets the chat model name. Empty uses the default.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// NewProvider creates an OpenAI chat completions provider.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		sdk:   openaisdk.NewClient(option.WithAPIKey(apiKey)),
		model: string(defaultModel),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Generate sends prompt as a single user message and returns the model's
// text response.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)

	resp, err := p.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(p.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
