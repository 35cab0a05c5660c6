// Package providers contains SDK-backed language-model clients used to
// produce summaries.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderXAI       = "xai"
	ProviderOllama    = "ollama"

	// DefaultTimeout bounds a single provider call when the caller sets none.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens caps the completion length of a single call.
	DefaultMaxTokens = 1024
)

// ErrEmptyResponse is returned when a provider answers without usable text.
var ErrEmptyResponse = errors.New("empty response from provider")

// ErrMissingAPIKey is returned when a hosted provider has no credentials.
var ErrMissingAPIKey = errors.New("api key not provided")

// Request is a single summarization call.
type Request struct {
	Text         string
	SystemPrompt string
	// Model overrides the provider's configured model when set.
	Model     string
	MaxTokens int
}

// Response carries the completion text and the token usage reported by the
// provider. Token counts are zero when the provider does not report them.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// LLMProvider defines the interface for language-model service providers.
type LLMProvider interface {
	// Complete sends the request and returns the model's answer.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Config holds common configuration for LLM providers.
type Config struct {
	APIKey    string
	ModelID   string
	BaseURL   string
	MaxTokens int
}

func (c Config) model(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.ModelID != "" {
		return c.ModelID
	}
	return fallback
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

// RetryableError marks a provider failure worth retrying, such as rate
// limiting or a transient server error.
type RetryableError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable error (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err, or any error it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// classify wraps err as a RetryableError when status indicates a transient
// failure and otherwise annotates it with the provider name.
func classify(provider string, status int, err error) error {
	if retryableStatus(status) {
		return &RetryableError{Provider: provider, StatusCode: status, Err: err}
	}
	return fmt.Errorf("%s: %w", provider, err)
}
