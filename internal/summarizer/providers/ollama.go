package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	ollamaDefaultHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaProvider implements LLMProvider against a local or remote Ollama
// server. It needs no API key.
type OllamaProvider struct {
	Config
	client *api.Client
}

// NewOllamaProvider creates a new instance of the Ollama provider.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	host := config.BaseURL
	if host == "" {
		host = ollamaDefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &OllamaProvider{
		Config: config,
		client: api.NewClient(u, &http.Client{Timeout: DefaultTimeout}),
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return ProviderOllama
}

// Complete implements the LLMProvider interface for Ollama.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	stream := false
	genReq := &api.GenerateRequest{
		Model:  p.model(req, defaultOllamaModel),
		Prompt: req.Text,
		System: req.SystemPrompt,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": p.maxTokens(req),
		},
	}

	var (
		text strings.Builder
		last api.GenerateResponse
	)
	err := p.client.Generate(ctx, genReq, func(gr api.GenerateResponse) error {
		text.WriteString(gr.Response)
		last = gr
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, classify(ProviderOllama, statusErr.StatusCode, err)
		}
		return nil, classify(ProviderOllama, 0, err)
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return nil, classify(ProviderOllama, 0, ErrEmptyResponse)
	}

	return &Response{
		Text:         out,
		InputTokens:  last.PromptEvalCount,
		OutputTokens: last.EvalCount,
	}, nil
}
