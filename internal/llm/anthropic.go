package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider is an Anthropic Messages API provider.
type AnthropicProvider struct {
	Model   string
	client  anthropic.Client
	apiKey  string
	timeout time.Duration
}

// NewAnthropicProvider creates a new Anthropic provider. baseURL may be empty.
func NewAnthropicProvider(model, apiKey, baseURL string, timeout time.Duration) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicProvider{
		Model:   model,
		client:  anthropic.NewClient(opts...),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// Name returns the provider name.
func (a *AnthropicProvider) Name() string { return "anthropic" }

// IsConfigured checks if the API key is set.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.apiKey != ""
}

// Generate sends a prompt to Anthropic and returns the first text block.
func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("Anthropic API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(0.3),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			logrus.WithFields(logrus.Fields{
				"tokens_in":  message.Usage.InputTokens,
				"tokens_out": message.Usage.OutputTokens,
			}).Debug("anthropic response")
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
