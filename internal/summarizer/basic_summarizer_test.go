package summarizer

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBasicSummarizer_Summarize(t *testing.T) {
	tests := []struct {
		name   string
		maxLen int
		input  string
		want   string
	}{
		{
			name:   "short text returned whole",
			maxLen: 100,
			input:  "Short text.",
			want:   "Short text.",
		},
		{
			name:   "surrounding whitespace trimmed",
			maxLen: 100,
			input:  "  padded  ",
			want:   "padded",
		},
		{
			name:   "cut at sentence end",
			maxLen: 30,
			input:  "First sentence here. Second sentence is longer than the budget.",
			want:   "First sentence here.",
		},
		{
			name:   "cut at word with ellipsis",
			maxLen: 20,
			input:  "no sentence terminators anywhere in this input",
			want:   "no sentence...",
		},
		{
			name:   "hard cut with ellipsis",
			maxLen: 10,
			input:  strings.Repeat("x", 40),
			want:   strings.Repeat("x", 7) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBasicSummarizer(tt.maxLen)
			got, err := s.Summarize(context.Background(), tt.input, "", "")
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("Summarize() = %q, want %q", got.Text, tt.want)
			}
			if n := utf8.RuneCountInString(got.Text); n > tt.maxLen {
				t.Errorf("summary has %d characters, budget %d", n, tt.maxLen)
			}
		})
	}
}

func TestBasicSummarizer_TokenEstimates(t *testing.T) {
	s := NewBasicSummarizer(8)

	got, err := s.Summarize(context.Background(), strings.Repeat("a", 40), "", "")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.InputTokens != 10 {
		t.Errorf("expected 10 input tokens, got %d", got.InputTokens)
	}
	if got.OutputTokens != 2 {
		t.Errorf("expected 2 output tokens, got %d", got.OutputTokens)
	}
}

func TestBasicSummarizer_EmptyInput(t *testing.T) {
	s := NewBasicSummarizer(0)
	if s.maxSummaryLen != DefaultMaxSummaryLength {
		t.Errorf("expected default length %d, got %d", DefaultMaxSummaryLength, s.maxSummaryLen)
	}

	got, err := s.Summarize(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Text != "" {
		t.Errorf("expected empty summary, got %q", got.Text)
	}
}

func TestBasicSummarizer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewBasicSummarizer(10).Summarize(ctx, "text", "", ""); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestFunc(t *testing.T) {
	var gotModel, gotPrompt string
	var s Summarizer = Func(func(_ context.Context, text, model, systemPrompt string) (*Completion, error) {
		gotModel, gotPrompt = model, systemPrompt
		return &Completion{Text: strings.ToUpper(text)}, nil
	})

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	got, err := s.Summarize(context.Background(), "abc", "m", "p")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Text != "ABC" || gotModel != "m" || gotPrompt != "p" {
		t.Errorf("unexpected call: text=%q model=%q prompt=%q", got.Text, gotModel, gotPrompt)
	}
}
