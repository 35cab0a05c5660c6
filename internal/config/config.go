// Package config loads recursum configuration from defaults, a JSON config
// file and RECURSUM_* environment variables.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"

	"github.com/localrivet/recursum/internal/chunker"
	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/logger"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/summarizer/providers"
)

// Config represents the recursum configuration
type Config struct {
	// Summarizer selects and tunes the language-model backend.
	Summarizer struct {
		// Provider is one of anthropic, openai, google, xai, ollama or basic.
		Provider string `json:"provider" env:"SUMMARIZER_PROVIDER" validate:"required"`

		// Model overrides the provider's default model.
		Model string `json:"model" env:"SUMMARIZER_MODEL"`

		// APIKey is the key of the primary provider. When empty the
		// provider's conventional environment variable is used.
		APIKey string `json:"api_key" env:"SUMMARIZER_API_KEY"`

		// BaseURL points the primary provider at a compatible endpoint.
		BaseURL string `json:"base_url" env:"SUMMARIZER_BASE_URL"`

		// SummaryLength is short, medium or long.
		SummaryLength string `json:"summary_length" env:"SUMMARY_LENGTH"`

		// SystemPrompt replaces the length-derived default prompt.
		SystemPrompt string `json:"system_prompt" env:"SYSTEM_PROMPT"`

		MaxOutputTokens int `json:"max_output_tokens" env:"MAX_OUTPUT_TOKENS" validate:"min:1"`
		TimeoutSeconds  int `json:"timeout_seconds" env:"TIMEOUT_SECONDS" validate:"min:1"`
		MaxRetries      int `json:"max_retries" env:"MAX_RETRIES"`

		// FallbackOrder is a comma-separated list of providers tried when
		// the primary fails.
		FallbackOrder string `json:"fallback_order" env:"FALLBACK_ORDER"`

		// CacheCapacity bounds the summary cache; negative disables it.
		CacheCapacity int `json:"cache_capacity" env:"CACHE_CAPACITY"`
	} `json:"summarizer"`

	// Chunking controls how long documents are split.
	Chunking struct {
		ChunkSize    int `json:"chunk_size" env:"CHUNK_SIZE" validate:"min:1"`
		ChunkOverlap int `json:"chunk_overlap" env:"CHUNK_OVERLAP"`
		BatchSize    int `json:"batch_size" env:"BATCH_SIZE" validate:"min:1"`
	} `json:"chunking"`

	// Store contains result storage configuration.
	Store struct {
		// Driver is sqlite or postgres.
		Driver string `json:"driver" env:"STORE_DRIVER" validate:"required"`

		// SQLitePath is the path to the SQLite database file.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH"`

		// PostgresURL is a pgx connection string.
		PostgresURL string `json:"postgres_url" env:"POSTGRES_URL"`
	} `json:"store"`

	// Server configures the HTTP API.
	Server struct {
		HTTPAddr string `json:"http_addr" env:"HTTP_ADDR"`

		// APIKey enables bearer-token authentication when set.
		APIKey string `json:"api_key" env:"HTTP_API_KEY"`
	} `json:"server"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename  = ".recursumconfig"
	DefaultEnvPrefix       = "RECURSUM"
	DefaultSQLitePath      = ".recursum.db"
	DefaultHTTPAddr        = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultProvider        = providers.ProviderAnthropic
	DefaultMaxOutputTokens = providers.DefaultMaxTokens
	DefaultTimeoutSeconds  = 60
	DefaultMaxRetries      = 2
	DefaultFallbackOrder   = "openai,google,xai"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Summarizer.Provider = DefaultProvider
	cfg.Summarizer.SummaryLength = string(reducer.LengthMedium)
	cfg.Summarizer.MaxOutputTokens = DefaultMaxOutputTokens
	cfg.Summarizer.TimeoutSeconds = DefaultTimeoutSeconds
	cfg.Summarizer.MaxRetries = DefaultMaxRetries
	cfg.Summarizer.FallbackOrder = DefaultFallbackOrder
	cfg.Summarizer.CacheCapacity = summarizer.DefaultCacheCapacity
	cfg.Chunking.ChunkSize = chunker.DefaultChunkSize
	cfg.Chunking.ChunkOverlap = chunker.DefaultChunkOverlap
	cfg.Chunking.BatchSize = reducer.DefaultBatchSize
	cfg.Store.Driver = StoreSQLite
	cfg.Store.SQLitePath = DefaultSQLitePath
	cfg.Server.HTTPAddr = DefaultHTTPAddr
	cfg.Logging.Level = DefaultLogLevel
	cfg.Logging.Format = DefaultLogFormat
	return cfg
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path. A missing
// file yields the defaults with environment overrides applied.
func LoadConfigWithPath(configPath string) (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := NewConfig()

	if configPath == DefaultConfigFilename {
		if foundPath, err := configurator.FindConfigFile(configPath); err == nil {
			configPath = foundPath
			logger.Debug("found config file", "path", foundPath)
		}
	}

	loader := configurator.New(logger).
		WithProvider(configurator.NewDefaultProvider())
	if _, err := os.Stat(configPath); err == nil {
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	} else {
		logger.Debug("config file not found, using defaults", "path", configPath)
	}
	loader = loader.
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, errortypes.ConfigError(err, "failed to load configuration").
			WithField("path", configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()
	return cfg, nil
}

// Validate rejects settings that would fail later, before any text is
// summarized.
func (c *Config) Validate() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	provider := c.Summarizer.Provider
	if provider != summarizer.ProviderBasic && !providers.IsSupported(provider) {
		return errortypes.ConfigError(fmt.Errorf("unknown provider %q", provider), "invalid summarizer provider")
	}

	if _, err := reducer.ParseSummaryLength(c.Summarizer.SummaryLength); err != nil {
		return errortypes.ConfigError(err, "invalid summary length")
	}

	opts := chunker.Options{ChunkSize: c.Chunking.ChunkSize, ChunkOverlap: c.Chunking.ChunkOverlap}
	if err := opts.Validate(); err != nil {
		return errortypes.ConfigError(err, "invalid chunking configuration")
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errortypes.ConfigError(fmt.Errorf("sqlite_path is empty"), "invalid store configuration")
		}
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			return errortypes.ConfigError(fmt.Errorf("postgres_url is empty"), "invalid store configuration")
		}
	default:
		return errortypes.ConfigError(fmt.Errorf("unknown store driver %q", c.Store.Driver), "invalid store configuration")
	}

	return nil
}

// ReductionOptions derives per-request reduction options.
func (c *Config) ReductionOptions() reducer.Options {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	length, err := reducer.ParseSummaryLength(c.Summarizer.SummaryLength)
	if err != nil {
		length = reducer.LengthMedium
	}
	return reducer.Options{
		Model:         c.Summarizer.Model,
		SummaryLength: length,
		SystemPrompt:  c.Summarizer.SystemPrompt,
		ChunkSize:     c.Chunking.ChunkSize,
		ChunkOverlap:  c.Chunking.ChunkOverlap,
	}
}

// SummarizerConfig builds the AISummarizer configuration, resolving API keys
// of the primary and fallback providers from the environment as needed.
func (c *Config) SummarizerConfig(logger *slog.Logger) *summarizer.AISummarizerConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	primary := c.Summarizer.Provider
	apiKey := c.Summarizer.APIKey
	if apiKey == "" {
		apiKey = ProviderAPIKey(primary)
	}
	baseURL := c.Summarizer.BaseURL
	if baseURL == "" && primary == providers.ProviderOllama {
		baseURL = os.Getenv("OLLAMA_HOST")
	}

	sc := &summarizer.AISummarizerConfig{
		ProviderName:    primary,
		ModelID:         c.Summarizer.Model,
		APIKey:          apiKey,
		BaseURL:         baseURL,
		MaxOutputTokens: c.Summarizer.MaxOutputTokens,
		Timeout:         time.Duration(c.Summarizer.TimeoutSeconds) * time.Second,
		MaxRetries:      c.Summarizer.MaxRetries,
		CacheCapacity:   c.Summarizer.CacheCapacity,
		Logger:          logger,
	}

	for _, name := range strings.Split(c.Summarizer.FallbackOrder, ",") {
		name = strings.TrimSpace(name)
		if name == "" || name == primary || !providers.IsSupported(name) {
			continue
		}
		fb := summarizer.FallbackConfig{Name: name, APIKey: ProviderAPIKey(name)}
		if name == providers.ProviderOllama {
			fb.BaseURL = os.Getenv("OLLAMA_HOST")
		} else if fb.APIKey == "" {
			continue
		}
		sc.FallbackOrder = append(sc.FallbackOrder, name)
		sc.FallbackProviders = append(sc.FallbackProviders, fb)
	}

	return sc
}

// ProviderAPIKey returns the conventional environment API key of a provider.
func ProviderAPIKey(provider string) string {
	switch provider {
	case providers.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case providers.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case providers.ProviderGoogle:
		if k := os.Getenv("GOOGLE_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GEMINI_API_KEY")
	case providers.ProviderXAI:
		return os.Getenv("XAI_API_KEY")
	default:
		return ""
	}
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()
	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// NewLogger builds the slog logger described by the logging section.
func (c *Config) NewLogger(out io.Writer) (*slog.Logger, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return logger.FromSettings(c.Logging.Level, c.Logging.Format, out)
}
