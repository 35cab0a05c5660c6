package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/localrivet/recursum/internal/chunker"
)

// ProviderBasic names the offline extractive summarizer in configuration.
const ProviderBasic = "basic"

// DefaultMaxSummaryLength is the character budget of a basic summary.
const DefaultMaxSummaryLength = 500

// BasicSummarizer is an offline implementation of the Summarizer interface.
// It keeps the leading sentences of the text up to a character budget and
// ignores the model and system prompt. Token counts are estimates.
type BasicSummarizer struct {
	maxSummaryLen int
}

// NewBasicSummarizer creates a new BasicSummarizer instance.
func NewBasicSummarizer(maxSummaryLen int) *BasicSummarizer {
	if maxSummaryLen <= 0 {
		maxSummaryLen = DefaultMaxSummaryLength
	}
	return &BasicSummarizer{
		maxSummaryLen: maxSummaryLen,
	}
}

// Initialize sets up the summarizer with any required configuration.
func (s *BasicSummarizer) Initialize() error {
	return nil
}

// Summarize returns the leading part of text, cut at the last sentence end
// within the budget, or at a word boundary with an ellipsis.
func (s *BasicSummarizer) Summarize(ctx context.Context, text, _, _ string) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := s.extract(strings.TrimSpace(text))
	return &Completion{
		Text:         summary,
		InputTokens:  chunker.EstimateTokenCount(text),
		OutputTokens: chunker.EstimateTokenCount(summary),
	}, nil
}

func (s *BasicSummarizer) extract(text string) string {
	if utf8.RuneCountInString(text) <= s.maxSummaryLen {
		return text
	}

	const ellipsis = "..."
	runes := []rune(text)
	truncated := string(runes[:s.maxSummaryLen])

	if idx := strings.LastIndexAny(truncated, ".!?"); idx > 0 {
		return truncated[:idx+1]
	}

	budget := s.maxSummaryLen - len(ellipsis)
	if budget < 0 {
		budget = 0
	}
	truncated = string(runes[:budget])
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		return truncated[:idx] + ellipsis
	}
	return truncated + ellipsis
}
