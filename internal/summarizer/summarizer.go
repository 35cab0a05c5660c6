// Package summarizer provides the single-call summarization collaborator
// used by the recursive reducer, with an LLM-backed and an offline
// implementation.
package summarizer

import (
	"context"

	"github.com/localrivet/recursum/internal/summarizer/providers"
)

// ErrEmptyResponse is returned when a summarization call yields no usable text.
var ErrEmptyResponse = providers.ErrEmptyResponse

// Completion is the result of one summarization call. Token counts are zero
// when the backend does not report them.
type Completion struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Summarizer defines the interface for summarizing text content.
type Summarizer interface {
	// Summarize condenses text with the given model and system prompt. An
	// empty model selects the backend default.
	Summarize(ctx context.Context, text, model, systemPrompt string) (*Completion, error)

	// Initialize sets up the summarizer with any required configuration.
	Initialize() error
}

// Func adapts a plain function to the Summarizer interface.
type Func func(ctx context.Context, text, model, systemPrompt string) (*Completion, error)

// Summarize calls f.
func (f Func) Summarize(ctx context.Context, text, model, systemPrompt string) (*Completion, error) {
	return f(ctx, text, model, systemPrompt)
}

// Initialize is a no-op.
func (f Func) Initialize() error {
	return nil
}
