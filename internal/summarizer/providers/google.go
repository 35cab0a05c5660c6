package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGoogleModel = "gemini-1.5-flash"

// GoogleProvider implements LLMProvider on the Gemini API. The client is
// created on first use because construction needs a context.
type GoogleProvider struct {
	Config
	mu     sync.Mutex
	client *genai.Client
}

// NewGoogleProvider creates a new instance of the Google provider.
func NewGoogleProvider(config Config) *GoogleProvider {
	return &GoogleProvider{Config: config}
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

func (p *GoogleProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(p.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	p.client = client
	return client, nil
}

// Complete implements the LLMProvider interface for Gemini.
func (p *GoogleProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.APIKey == "" {
		return nil, classify(ProviderGoogle, 0, ErrMissingAPIKey)
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return nil, classify(ProviderGoogle, 0, err)
	}

	model := client.GenerativeModel(p.model(req, defaultGoogleModel))
	model.SetMaxOutputTokens(int32(p.maxTokens(req)))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Text))
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return nil, classify(ProviderGoogle, gErr.Code, err)
		}
		return nil, classify(ProviderGoogle, 0, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, classify(ProviderGoogle, 0, ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, classify(ProviderGoogle, 0, ErrEmptyResponse)
	}

	out := &Response{Text: text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// Close releases the underlying client.
func (p *GoogleProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
