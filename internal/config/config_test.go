package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/summarizer/providers"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Chunking.ChunkSize != 4000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("unexpected chunking defaults %+v", cfg.Chunking)
	}
	if cfg.Store.Driver != StoreSQLite {
		t.Errorf("expected sqlite store by default, got %q", cfg.Store.Driver)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Summarizer.Provider = "acme" }},
		{name: "unknown length", mutate: func(c *Config) { c.Summarizer.SummaryLength = "epic" }},
		{name: "zero chunk size", mutate: func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{name: "overlap not below size", mutate: func(c *Config) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize }},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = StorePostgres }},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.SQLitePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errortypes.IsConfigError(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}

	t.Run("basic provider", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Summarizer.Provider = "basic"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected basic provider to be valid, got %v", err)
		}
	})
}

func TestConfig_ReductionOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Summarizer.Model = "m"
	cfg.Summarizer.SummaryLength = "LONG"
	cfg.Summarizer.SystemPrompt = "custom"
	cfg.Chunking.ChunkSize = 1000
	cfg.Chunking.ChunkOverlap = 50

	got := cfg.ReductionOptions()
	want := reducer.Options{
		Model:         "m",
		SummaryLength: reducer.LengthLong,
		SystemPrompt:  "custom",
		ChunkSize:     1000,
		ChunkOverlap:  50,
	}
	if got != want {
		t.Errorf("ReductionOptions() = %+v, want %+v", got, want)
	}
}

func TestConfig_SummarizerConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XAI_API_KEY", "env-xai")

	cfg := NewConfig()
	cfg.Summarizer.FallbackOrder = "xai, google, anthropic, bogus, openai"
	cfg.Summarizer.TimeoutSeconds = 5

	sc := cfg.SummarizerConfig(nil)

	if sc.ProviderName != providers.ProviderAnthropic || sc.APIKey != "env-anthropic" {
		t.Errorf("expected anthropic primary with env key, got %q/%q", sc.ProviderName, sc.APIKey)
	}
	if sc.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", sc.Timeout)
	}

	// google has no key, anthropic is the primary, bogus is unknown.
	want := []string{providers.ProviderXAI, providers.ProviderOpenAI}
	if len(sc.FallbackOrder) != len(want) {
		t.Fatalf("expected fallbacks %v, got %v", want, sc.FallbackOrder)
	}
	for i := range want {
		if sc.FallbackOrder[i] != want[i] || sc.FallbackProviders[i].Name != want[i] {
			t.Errorf("fallback %d: expected %q, got %q", i, want[i], sc.FallbackOrder[i])
		}
	}

	t.Run("explicit key wins", func(t *testing.T) {
		cfg.Summarizer.APIKey = "explicit"
		if got := cfg.SummarizerConfig(nil).APIKey; got != "explicit" {
			t.Errorf("expected explicit key, got %q", got)
		}
	})
}

func TestProviderAPIKey_GeminiFallback(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini")

	if got := ProviderAPIKey(providers.ProviderGoogle); got != "gemini" {
		t.Errorf("expected gemini key, got %q", got)
	}
	if got := ProviderAPIKey(providers.ProviderOllama); got != "" {
		t.Errorf("expected no key for ollama, got %q", got)
	}
}

func TestLoadConfigWithPath_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	cfg, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if cfg.Chunking.ChunkSize != 4000 {
		t.Errorf("expected default chunk size, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.GetConfigPath() != path {
		t.Errorf("expected config path %q, got %q", path, cfg.GetConfigPath())
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recursum.json")

	cfg := NewConfig()
	cfg.Chunking.ChunkSize = 1234
	cfg.Summarizer.Provider = providers.ProviderOllama
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if loaded.Chunking.ChunkSize != 1234 {
		t.Errorf("expected chunk size 1234, got %d", loaded.Chunking.ChunkSize)
	}
	if loaded.Summarizer.Provider != providers.ProviderOllama {
		t.Errorf("expected provider ollama, got %q", loaded.Summarizer.Provider)
	}
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	var buf bytes.Buffer
	log, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	log.Debug("probe")
	if !strings.Contains(buf.String(), `"msg":"probe"`) {
		t.Errorf("expected JSON debug record, got %q", buf.String())
	}

	cfg.Logging.Level = "loud"
	if _, err := cfg.NewLogger(&buf); err == nil {
		t.Error("expected error for unknown level")
	}
}
