package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider implements LLMProvider on the Anthropic Messages API.
type AnthropicProvider struct {
	Config
	client anthropic.Client
}

// NewAnthropicProvider creates a new instance of the Anthropic provider.
func NewAnthropicProvider(config Config) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// Retries are driven by the summarizer so fallbacks see every failure.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &AnthropicProvider{
		Config: config,
		client: anthropic.NewClient(opts...),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Complete implements the LLMProvider interface for Anthropic.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.APIKey == "" {
		return nil, classify(ProviderAnthropic, 0, ErrMissingAPIKey)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model(req, defaultAnthropicModel)),
		MaxTokens: int64(p.maxTokens(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Text)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classify(ProviderAnthropic, apiErr.StatusCode, err)
		}
		return nil, classify(ProviderAnthropic, 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, classify(ProviderAnthropic, 0, ErrEmptyResponse)
	}

	return &Response{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
