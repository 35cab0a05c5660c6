package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements LLMProvider on the chat completions API. It also
// backs any OpenAI-compatible endpoint through Config.BaseURL.
type OpenAIProvider struct {
	Config
	name         string
	defaultModel string
	client       *openai.Client
}

// NewOpenAIProvider creates a new instance of the OpenAI provider.
func NewOpenAIProvider(config Config) *OpenAIProvider {
	return newOpenAICompatible(ProviderOpenAI, defaultOpenAIModel, config)
}

func newOpenAICompatible(name, defaultModel string, config Config) *OpenAIProvider {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	return &OpenAIProvider{
		Config:       config,
		name:         name,
		defaultModel: defaultModel,
		client:       openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete implements the LLMProvider interface.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.APIKey == "" {
		return nil, classify(p.name, 0, ErrMissingAPIKey)
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model(req, p.defaultModel),
		Messages:  messages,
		MaxTokens: p.maxTokens(req),
	})
	if err != nil {
		return nil, classify(p.name, openAIStatus(err), err)
	}

	if len(resp.Choices) == 0 {
		return nil, classify(p.name, 0, ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, classify(p.name, 0, ErrEmptyResponse)
	}

	return &Response{
		Text:         text,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
