package reducer

import (
	"fmt"
	"strings"
)

// SummaryLength selects the target length of the default system prompt.
type SummaryLength string

const (
	LengthShort  SummaryLength = "short"
	LengthMedium SummaryLength = "medium"
	LengthLong   SummaryLength = "long"
)

// ParseSummaryLength parses a case-insensitive length name. The empty string
// yields LengthMedium.
func ParseSummaryLength(s string) (SummaryLength, error) {
	switch SummaryLength(strings.ToLower(strings.TrimSpace(s))) {
	case "", LengthMedium:
		return LengthMedium, nil
	case LengthShort:
		return LengthShort, nil
	case LengthLong:
		return LengthLong, nil
	default:
		return "", fmt.Errorf("unknown summary length %q (want short, medium or long)", s)
	}
}

// Valid reports whether l is one of the known lengths.
func (l SummaryLength) Valid() bool {
	return l == LengthShort || l == LengthMedium || l == LengthLong
}

func (l SummaryLength) instruction() string {
	switch l {
	case LengthShort:
		return "in 2-3 sentences"
	case LengthLong:
		return "in 3-4 paragraphs"
	default:
		return "in 1-2 paragraphs"
	}
}

// DefaultSystemPrompt returns the system prompt used when the caller supplies none.
func DefaultSystemPrompt(l SummaryLength) string {
	return "You are a precise summarization assistant. Summarize the text provided by the user " +
		l.instruction() +
		". Preserve the key facts, names, figures and conclusions. " +
		"Do not add information that is not in the text and do not comment on the text itself."
}
