package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/localrivet/recursum/internal/summarizer/providers"
	"github.com/localrivet/recursum/internal/telemetry"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultRetryDelay    = 2 * time.Second
	DefaultCacheCapacity = 1000
	DefaultCacheTTL      = 24 * time.Hour
)

var (
	ErrProviderNotSupported = errors.New("provider not supported")
	ErrSummarizationFailed  = errors.New("summarization failed")
	ErrConfigError          = errors.New("configuration error")
)

// FallbackConfig configures one provider of the fallback chain.
type FallbackConfig struct {
	Name    string
	ModelID string
	APIKey  string
	BaseURL string
}

// AISummarizerConfig holds configuration for the AISummarizer.
type AISummarizerConfig struct {
	ProviderName    string
	ModelID         string
	APIKey          string
	BaseURL         string
	MaxOutputTokens int
	Timeout         time.Duration
	// MaxRetries is the number of extra attempts per provider for retryable
	// failures. Zero disables retries.
	MaxRetries    int
	RetryDelay    time.Duration
	CacheCapacity int
	CacheTTL      time.Duration

	// FallbackOrder lists fallback providers by preference. Providers in
	// FallbackProviders but not in FallbackOrder are tried afterwards.
	FallbackOrder     []string
	FallbackProviders []FallbackConfig

	Logger  *slog.Logger
	Metrics *telemetry.MetricsCollector
}

// AISummarizer implements Summarizer on top of LLM providers. Retryable
// provider failures are retried with a linear backoff, then the fallback
// chain is tried in order. Successful summaries are cached.
type AISummarizer struct {
	config              AISummarizerConfig
	provider            providers.LLMProvider
	fallbackProviders   []providers.LLMProvider
	providerFactory     *providers.ProviderFactory
	providerInitialized bool
	timeout             time.Duration
	maxRetries          int
	retryDelay          time.Duration
	maxOutputTokens     int
	cache               *summaryCache
	metrics             *telemetry.MetricsCollector
	logger              *slog.Logger
	mu                  sync.RWMutex
}

// NewAISummarizer creates a new AISummarizer with the specified provider and settings.
func NewAISummarizer(config *AISummarizerConfig) *AISummarizer {
	if config == nil {
		config = &AISummarizerConfig{}
	}
	cfg := *config

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.CacheCapacity == 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewMetricsCollector()
	}

	return &AISummarizer{
		config:          cfg,
		timeout:         cfg.Timeout,
		maxRetries:      cfg.MaxRetries,
		retryDelay:      cfg.RetryDelay,
		maxOutputTokens: cfg.MaxOutputTokens,
		cache:           newSummaryCache(cfg.CacheCapacity, cfg.CacheTTL),
		metrics:         cfg.Metrics,
		logger:          cfg.Logger.With("component", "ai_summarizer"),
	}
}

// Initialize builds the primary provider and the fallback chain from the
// configuration. It is safe to call more than once.
func (s *AISummarizer) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.providerInitialized {
		return nil
	}

	if s.provider == nil {
		cfg := s.config
		if !providers.IsSupported(cfg.ProviderName) {
			return fmt.Errorf("%w: %q", ErrProviderNotSupported, cfg.ProviderName)
		}
		if cfg.APIKey == "" && cfg.ProviderName != providers.ProviderOllama {
			return fmt.Errorf("%w: missing API key for primary provider %s", ErrConfigError, cfg.ProviderName)
		}

		configs := map[string]providers.Config{
			cfg.ProviderName: {
				APIKey:    cfg.APIKey,
				ModelID:   cfg.ModelID,
				BaseURL:   cfg.BaseURL,
				MaxTokens: cfg.MaxOutputTokens,
			},
		}
		for _, fb := range cfg.FallbackProviders {
			if fb.Name == cfg.ProviderName || !providers.IsSupported(fb.Name) {
				continue
			}
			configs[fb.Name] = providers.Config{
				APIKey:    fb.APIKey,
				ModelID:   fb.ModelID,
				BaseURL:   fb.BaseURL,
				MaxTokens: cfg.MaxOutputTokens,
			}
		}

		s.providerFactory = providers.NewProviderFactory(configs)

		primary, err := s.providerFactory.GetProvider(cfg.ProviderName)
		if err != nil {
			return fmt.Errorf("failed to create primary provider: %w", err)
		}
		s.provider = primary
		s.fallbackProviders = s.providerFactory.GetProviderChain(cfg.FallbackOrder, cfg.ProviderName)
	}

	s.providerInitialized = true
	s.logger.Debug("summarizer initialized",
		"provider", s.provider.Name(),
		"fallbacks", len(s.fallbackProviders))
	return nil
}

// Summarize condenses text with the primary provider, falling back to the
// rest of the chain when it fails. Cache hits report zero tokens because no
// call was made.
func (s *AISummarizer) Summarize(ctx context.Context, text, model, systemPrompt string) (*Completion, error) {
	startTime := time.Now()
	defer func() {
		s.metrics.RecordTimer(telemetry.MetricSummarizeTime, time.Since(startTime))
	}()

	s.mu.RLock()
	initialized := s.providerInitialized
	s.mu.RUnlock()
	if !initialized {
		if err := s.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
		}
	}

	key := cacheKey(model, systemPrompt, text)
	if summary, found := s.cache.get(key); found {
		s.metrics.IncrementCounter(telemetry.MetricCacheHits, 1)
		return &Completion{Text: summary}, nil
	}
	s.metrics.IncrementCounter(telemetry.MetricCacheMisses, 1)

	s.mu.RLock()
	primary := s.provider
	fallbacks := s.fallbackProviders
	s.mu.RUnlock()

	req := providers.Request{
		Text:         text,
		SystemPrompt: systemPrompt,
		Model:        model,
		MaxTokens:    s.maxOutputTokens,
	}

	resp, err := s.completeWithRetries(ctx, primary, req)
	if err == nil {
		return s.succeed(key, resp), nil
	}
	s.metrics.IncrementCounter(telemetry.MetricAPICallsFailure, 1)
	s.logger.Warn("primary provider failed", "provider", primary.Name(), "error", err)

	lastErr := err
	for _, fallback := range fallbacks {
		if ctx.Err() != nil {
			break
		}
		s.metrics.IncrementCounter(telemetry.MetricFallbackAttempts, 1)

		// Model names are provider specific.
		fbReq := req
		fbReq.Model = ""

		resp, err = s.completeWithRetries(ctx, fallback, fbReq)
		if err == nil {
			s.metrics.IncrementCounter(telemetry.MetricFallbackSuccess, 1)
			s.logger.Info("fallback provider succeeded", "provider", fallback.Name())
			return s.succeed(key, resp), nil
		}

		s.metrics.IncrementCounter(telemetry.MetricAPICallsFailure, 1)
		s.logger.Warn("fallback provider failed", "provider", fallback.Name(), "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrSummarizationFailed, lastErr)
}

func (s *AISummarizer) succeed(key string, resp *providers.Response) *Completion {
	s.metrics.IncrementCounter(telemetry.MetricAPICallsSuccess, 1)
	s.cache.put(key, resp.Text)
	s.metrics.SetGauge(telemetry.MetricCacheSize, float64(s.cache.size()))
	return &Completion{
		Text:         resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
}

// completeWithRetries calls p, retrying only retryable failures.
func (s *AISummarizer) completeWithRetries(ctx context.Context, p providers.LLMProvider, req providers.Request) (*providers.Response, error) {
	name := p.Name()
	for attempt := 0; ; attempt++ {
		s.metrics.IncrementCounter(telemetry.APICallsMetric(name), 1)

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		resp, err := p.Complete(callCtx, req)
		cancel()

		if err == nil {
			s.metrics.RecordTimer(telemetry.ResponseTimeMetric(name), time.Since(start))
			if attempt > 0 {
				s.metrics.IncrementCounter(telemetry.MetricRetrySuccess, 1)
			}
			return resp, nil
		}

		if ctx.Err() != nil || !providers.IsRetryable(err) || attempt >= s.maxRetries {
			return nil, err
		}

		s.metrics.IncrementCounter(telemetry.MetricRetryAttempts, 1)
		delay := s.retryDelay * time.Duration(attempt+1)
		s.logger.Debug("retrying provider call",
			"provider", name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// GetMetrics returns the metrics collector for this summarizer.
func (s *AISummarizer) GetMetrics() *telemetry.MetricsCollector {
	return s.metrics
}

// ProviderName returns the primary provider name, or "" before Initialize.
func (s *AISummarizer) ProviderName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// CheckProviderHealth sends a tiny request to every provider and reports
// which ones answered.
func (s *AISummarizer) CheckProviderHealth(ctx context.Context) map[string]bool {
	results := make(map[string]bool)

	if err := s.Initialize(); err != nil {
		return results
	}

	s.mu.RLock()
	all := append([]providers.LLMProvider{s.provider}, s.fallbackProviders...)
	s.mu.RUnlock()

	req := providers.Request{
		Text:         "This is a brief health check.",
		SystemPrompt: "Reply with one word.",
		MaxTokens:    16,
	}
	for _, p := range all {
		name := p.Name()
		if _, checked := results[name]; checked {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := p.Complete(checkCtx, req)
		cancel()

		results[name] = err == nil
		s.metrics.SetGauge(telemetry.HealthMetric(name), boolToFloat64(err == nil))
		if err != nil {
			s.logger.Warn("provider health check failed", "provider", name, "error", err)
		}
	}

	return results
}

// Close releases provider resources.
func (s *AISummarizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, p := range append([]providers.LLMProvider{s.provider}, s.fallbackProviders...) {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
