// Package recursum summarizes documents of any length by splitting them into
// chunks, summarizing each chunk and reducing the joined summaries until
// they fit a single call.
package recursum

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/localrivet/recursum/internal/config"
	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/parser"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/resultstore"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/telemetry"
	"github.com/localrivet/recursum/internal/util"
)

// Config represents the configuration for the recursum service.
type Config = config.Config

// Service wires the summarizer, the reducer and the result store.
type Service struct {
	config     *config.Config
	store      resultstore.Store
	summarizer summarizer.Summarizer
	reducer    *reducer.Reducer
	metrics    *telemetry.MetricsCollector
	logger     *slog.Logger
}

// ServiceOptions defines the options for creating a new Service.
type ServiceOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// Store and Summarizer replace the components the configuration would
	// create.
	Store      resultstore.Store
	Summarizer summarizer.Summarizer
}

// NewService creates a Service with the given options.
func NewService(ctx context.Context, opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error
	switch {
	case opts.Config != nil:
		cfg = opts.Config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	case opts.ConfigPath != "":
		logger.Info("Loading configuration", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	default:
		logger.Debug("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	metrics := telemetry.NewMetricsCollector()

	store := opts.Store
	sum := opts.Summarizer
	if store == nil || sum == nil {
		createdStore, createdSum, err := CreateComponents(ctx, cfg, logger, metrics, store == nil, sum == nil)
		if err != nil {
			return nil, err
		}
		if store == nil {
			store = createdStore
		}
		if sum == nil {
			sum = createdSum
		}
	}

	red := reducer.New(sum,
		reducer.WithLogger(logger),
		reducer.WithMetrics(metrics),
		reducer.WithBatchSize(cfg.Chunking.BatchSize))

	logger.Info("recursum service initialized",
		"provider", cfg.Summarizer.Provider,
		"store", cfg.Store.Driver,
		"chunk_size", cfg.Chunking.ChunkSize)

	return &Service{
		config:     cfg,
		store:      store,
		summarizer: sum,
		reducer:    red,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateComponents creates and initializes the store and summarizer named
// by cfg. Either can be skipped, in which case nil is returned for it.
func CreateComponents(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *telemetry.MetricsCollector, wantStore, wantSummarizer bool) (resultstore.Store, summarizer.Summarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var store resultstore.Store
	if wantStore {
		dsn := cfg.Store.SQLitePath
		if cfg.Store.Driver == config.StorePostgres {
			dsn = cfg.Store.PostgresURL
		}
		logger.Info("Initializing result store", "driver", cfg.Store.Driver)

		var err error
		store, err = resultstore.Open(ctx, cfg.Store.Driver, dsn)
		if err != nil {
			return nil, nil, err
		}
	}

	var sum summarizer.Summarizer
	if wantSummarizer {
		logger.Info("Initializing summarizer", "provider", cfg.Summarizer.Provider)
		if cfg.Summarizer.Provider == summarizer.ProviderBasic {
			sum = summarizer.NewBasicSummarizer(summarizer.DefaultMaxSummaryLength)
		} else {
			sc := cfg.SummarizerConfig(logger)
			sc.Metrics = metrics
			sum = summarizer.NewAISummarizer(sc)
		}

		if err := sum.Initialize(); err != nil {
			if store != nil {
				store.Close()
			}
			return nil, nil, errortypes.ConfigError(err, "failed to initialize summarizer").
				WithField("provider", cfg.Summarizer.Provider)
		}
	}

	return store, sum, nil
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *Config {
	return s.config
}

// DefaultOptions returns the configured reduction options.
func (s *Service) DefaultOptions() reducer.Options {
	return s.config.ReductionOptions()
}

// SummarizeText reduces text to a single summary without storing it.
func (s *Service) SummarizeText(ctx context.Context, text string, opts reducer.Options) (*reducer.Result, error) {
	return s.reducer.SummarizeText(ctx, text, opts)
}

// Summarize reduces text and, when save is set, stores the result under a
// new id. The returned record has an empty ID when it was not saved.
func (s *Service) Summarize(ctx context.Context, text, source string, opts reducer.Options, save bool) (*resultstore.Record, error) {
	result, err := s.reducer.SummarizeText(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = s.config.Summarizer.Provider
	}
	length := opts.SummaryLength
	if length == "" {
		length = reducer.LengthMedium
	}

	now := time.Now().UTC()
	rec := &resultstore.Record{
		Source:        source,
		Model:         model,
		SummaryLength: string(length),
		CreatedAt:     now,
		Result:        *result,
	}
	if !save {
		return rec, nil
	}

	rec.ID = util.NewRecordID(text, now)
	if err := s.store.Store(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("Saved summary", "id", rec.ID, "source", source)
	return rec, nil
}

// SummarizeFile parses the document at path and summarizes its text.
func (s *Service) SummarizeFile(ctx context.Context, path string, opts reducer.Options, save bool) (*resultstore.Record, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Parsed document", "path", path, "sections", len(doc.Sections))
	return s.Summarize(ctx, doc.Text(), path, opts, save)
}

// GetSummary returns a stored summary.
func (s *Service) GetSummary(ctx context.Context, id string) (*resultstore.Record, error) {
	return s.store.Get(ctx, id)
}

// ListSummaries returns up to limit stored summaries, newest first.
func (s *Service) ListSummaries(ctx context.Context, limit int) ([]*resultstore.Record, error) {
	return s.store.List(ctx, limit)
}

// DeleteSummary removes a stored summary.
func (s *Service) DeleteSummary(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ClearSummaries removes every stored summary.
func (s *Service) ClearSummaries(ctx context.Context) (int, error) {
	return s.store.Clear(ctx)
}

// Stats returns a snapshot of the reduction and provider metrics.
func (s *Service) Stats() telemetry.Snapshot {
	return s.metrics.Snapshot()
}

// Health reports provider health. The basic summarizer is always healthy.
// An unreachable store degrades the report.
func (s *Service) Health(ctx context.Context) (*summarizer.HealthReport, error) {
	var report *summarizer.HealthReport
	if ai, ok := s.summarizer.(*summarizer.AISummarizer); ok {
		var err error
		report, err = summarizer.CreateHealthReport(ctx, ai)
		if err != nil {
			return nil, errortypes.InternalError(err, "failed to build health report")
		}
	} else {
		report = &summarizer.HealthReport{
			Status:     summarizer.StatusHealthy,
			Timestamp:  time.Now(),
			Components: map[string]string{"summarizer": string(summarizer.StatusHealthy)},
			Providers:  map[string]bool{s.config.Summarizer.Provider: true},
			Version:    summarizer.Version,
		}
	}

	if report.Components == nil {
		report.Components = map[string]string{}
	}
	report.Components["store"] = string(summarizer.StatusHealthy)
	if _, err := s.store.List(ctx, 1); err != nil {
		s.logger.Warn("store health check failed", "error", err)
		report.Components["store"] = string(summarizer.StatusUnhealthy)
		if report.Status == summarizer.StatusHealthy {
			report.Status = summarizer.StatusDegraded
		}
	}
	return report, nil
}

// Close releases the summarizer and the store.
func (s *Service) Close() error {
	var errs []error
	if ai, ok := s.summarizer.(*summarizer.AISummarizer); ok {
		errs = append(errs, ai.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
