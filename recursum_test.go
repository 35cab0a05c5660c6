package recursum

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/telemetry"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Summarizer.Provider = summarizer.ProviderBasic
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "recursum.db")
	cfg.Chunking.ChunkSize = 100
	cfg.Chunking.ChunkOverlap = 10
	return cfg
}

func newTestService(t *testing.T, cfg *Config, sum summarizer.Summarizer) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), ServiceOptions{
		Config:     cfg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Summarizer: sum,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// fixedSummarizer answers every call with the same short text.
func fixedSummarizer() summarizer.Summarizer {
	return summarizer.Func(func(ctx context.Context, text, model, prompt string) (*summarizer.Completion, error) {
		return &summarizer.Completion{Text: "Condensed.", InputTokens: 10, OutputTokens: 2}, nil
	})
}

func TestNewService_BasicProvider(t *testing.T) {
	svc := newTestService(t, testConfig(t), nil)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	res, err := svc.SummarizeText(context.Background(), text, svc.DefaultOptions())
	if err != nil {
		t.Fatalf("SummarizeText() error = %v", err)
	}
	if res.Summary == "" || res.ChunksProcessed < 2 {
		t.Errorf("expected a chunked summary, got %+v", res)
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize

	_, err := NewService(context.Background(), ServiceOptions{Config: cfg})
	if !errortypes.IsConfigError(err) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestNewService_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := testConfig(t)
	cfg.Summarizer.Provider = "anthropic"
	cfg.Summarizer.APIKey = ""

	_, err := NewService(context.Background(), ServiceOptions{Config: cfg})
	if !errortypes.IsConfigError(err) {
		t.Errorf("expected config error for missing key, got %v", err)
	}
}

func TestService_SummarizeAndStore(t *testing.T) {
	svc := newTestService(t, testConfig(t), fixedSummarizer())
	ctx := context.Background()

	text := strings.Repeat("Sentence number one is here. ", 20)
	opts, err := svc.DefaultOptions().Apply(reducer.Overrides{SummaryLength: "short"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	unsaved, err := svc.Summarize(ctx, text, "inline", opts, false)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if unsaved.ID != "" {
		t.Errorf("expected no id for unsaved result, got %q", unsaved.ID)
	}

	saved, err := svc.Summarize(ctx, text, "inline", opts, true)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if saved.ID == "" || saved.SummaryLength != "short" || saved.Model != summarizer.ProviderBasic {
		t.Errorf("unexpected record %+v", saved)
	}

	got, err := svc.GetSummary(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got.Result != saved.Result {
		t.Errorf("stored result %+v, want %+v", got.Result, saved.Result)
	}

	list, err := svc.ListSummaries(ctx, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSummaries() = %d records, %v", len(list), err)
	}

	if err := svc.DeleteSummary(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteSummary() error = %v", err)
	}
	if _, err := svc.GetSummary(ctx, saved.ID); !errortypes.IsNotFoundError(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	stats := svc.Stats()
	if stats.Counters[telemetry.MetricReductions] != 2 {
		t.Errorf("expected 2 reductions in stats, got %d", stats.Counters[telemetry.MetricReductions])
	}
}

func TestService_SummarizeFile(t *testing.T) {
	svc := newTestService(t, testConfig(t), fixedSummarizer())

	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# Title\n\nShort body."), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.SummarizeFile(context.Background(), path, svc.DefaultOptions(), true)
	if err != nil {
		t.Fatalf("SummarizeFile() error = %v", err)
	}
	if rec.Source != path || rec.Result.Summary != "Condensed." || rec.Result.OriginalLength != len("Title\n\nShort body.") {
		t.Errorf("unexpected record %+v", rec)
	}

	if _, err := svc.SummarizeFile(context.Background(), "image.png", svc.DefaultOptions(), false); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for unsupported file, got %v", err)
	}
}

func TestService_HealthWithBasicSummarizer(t *testing.T) {
	svc := newTestService(t, testConfig(t), nil)

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if report.Status != summarizer.StatusHealthy || report.Components["store"] != string(summarizer.StatusHealthy) {
		t.Errorf("unexpected report %+v", report)
	}

	svc.store.Close()
	report, _ = svc.Health(context.Background())
	if report.Status != summarizer.StatusDegraded {
		t.Errorf("expected degraded status with closed store, got %q", report.Status)
	}
}
