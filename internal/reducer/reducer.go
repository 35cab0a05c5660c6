// Package reducer implements recursive chunk-and-reduce summarization: text
// that does not fit the chunk budget is split, each chunk is summarized in
// order, and the joined summaries are reduced again until they fit.
package reducer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/localrivet/recursum/internal/chunker"
	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/telemetry"
)

// DefaultBatchSize is how many chunk summaries are staged before they are
// appended to the level's results.
const DefaultBatchSize = 5

// summarySeparator joins chunk summaries into the next level's input.
const summarySeparator = "\n\n"

// Options configures one summarization request.
type Options struct {
	Model         string        `json:"model"`
	SummaryLength SummaryLength `json:"summary_length"`
	SystemPrompt  string        `json:"system_prompt,omitempty"`
	ChunkSize     int           `json:"chunk_size"`
	ChunkOverlap  int           `json:"chunk_overlap"`
}

// DefaultOptions returns medium-length options with the default chunking.
func DefaultOptions() Options {
	return Options{
		SummaryLength: LengthMedium,
		ChunkSize:     chunker.DefaultChunkSize,
		ChunkOverlap:  chunker.DefaultChunkOverlap,
	}
}

// Validate returns a configuration error for options that must be rejected
// before any summarization call is made.
func (o Options) Validate() error {
	co := chunker.Options{ChunkSize: o.ChunkSize, ChunkOverlap: o.ChunkOverlap}
	if err := co.Validate(); err != nil {
		return errortypes.ConfigError(err, "invalid chunking options").
			WithField("chunk_size", o.ChunkSize).
			WithField("chunk_overlap", o.ChunkOverlap)
	}
	if o.SummaryLength != "" && !o.SummaryLength.Valid() {
		return errortypes.ConfigError(fmt.Errorf("unknown summary length %q", o.SummaryLength), "invalid summary length")
	}
	return nil
}

func (o Options) systemPrompt() string {
	if strings.TrimSpace(o.SystemPrompt) != "" {
		return o.SystemPrompt
	}
	return DefaultSystemPrompt(o.SummaryLength)
}

func (o Options) chunking() chunker.Options {
	return chunker.Options{ChunkSize: o.ChunkSize, ChunkOverlap: o.ChunkOverlap}
}

// Reduction is the outcome of one recursion level, already folded with the
// levels below it.
type Reduction struct {
	Summary         string
	Levels          int
	ChunksProcessed int
	InputTokens     int
	OutputTokens    int
}

// Result is the final outcome of SummarizeText. Lengths are in characters.
type Result struct {
	Summary         string `json:"summary"`
	OriginalLength  int    `json:"original_length"`
	SummaryLength   int    `json:"summary_length"`
	ChunksProcessed int    `json:"chunks_processed"`
	Levels          int    `json:"levels"`
	InputTokens     int    `json:"input_tokens"`
	OutputTokens    int    `json:"output_tokens"`
	TotalTokens     int    `json:"total_tokens"`
}

// Reducer drives the summarize, combine and recurse loop. It holds no
// per-request state, so one Reducer may serve concurrent requests.
type Reducer struct {
	summarizer summarizer.Summarizer
	logger     *slog.Logger
	metrics    *telemetry.MetricsCollector
	batchSize  int
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(r *Reducer) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithBatchSize sets how many chunk summaries are staged at a time.
func WithBatchSize(n int) Option {
	return func(r *Reducer) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// New creates a Reducer that summarizes through s.
func New(s summarizer.Summarizer, opts ...Option) *Reducer {
	r := &Reducer{
		summarizer: s,
		logger:     slog.Default(),
		metrics:    telemetry.NewMetricsCollector(),
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reducer")
	return r
}

// Metrics returns the collector the reducer records into.
func (r *Reducer) Metrics() *telemetry.MetricsCollector {
	return r.metrics
}

// SummarizeText validates opts and reduces text to a single summary.
func (r *Reducer) SummarizeText(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	red, err := r.Reduce(ctx, text, opts, 1)
	r.metrics.RecordTimer(telemetry.MetricReductionTime, time.Since(start))
	if err != nil {
		r.metrics.IncrementCounter(telemetry.MetricReductionFailures, 1)
		return nil, err
	}

	result := &Result{
		Summary:         red.Summary,
		OriginalLength:  utf8.RuneCountInString(text),
		SummaryLength:   utf8.RuneCountInString(red.Summary),
		ChunksProcessed: red.ChunksProcessed,
		Levels:          red.Levels,
		InputTokens:     red.InputTokens,
		OutputTokens:    red.OutputTokens,
		TotalTokens:     red.InputTokens + red.OutputTokens,
	}

	r.metrics.IncrementCounter(telemetry.MetricReductions, 1)
	r.metrics.IncrementCounter(telemetry.MetricInputTokens, int64(result.InputTokens))
	r.metrics.IncrementCounter(telemetry.MetricOutputTokens, int64(result.OutputTokens))
	r.metrics.SetGauge(telemetry.MetricLastLevels, float64(result.Levels))
	r.metrics.RecordTimestamp(telemetry.MetricLastReduction)

	r.logger.Info("summarization complete",
		"original_length", result.OriginalLength,
		"summary_length", result.SummaryLength,
		"levels", result.Levels,
		"chunks", result.ChunksProcessed,
		"total_tokens", result.TotalTokens,
		"duration", time.Since(start))

	return result, nil
}

// Reduce summarizes text at the given recursion level. Options are assumed
// valid; SummarizeText checks them.
func (r *Reducer) Reduce(ctx context.Context, text string, opts Options, level int) (*Reduction, error) {
	prompt := opts.systemPrompt()
	maxTokens := chunker.MaxTokensFor(opts.ChunkSize)

	if float64(chunker.EstimateTokenCount(text)) <= maxTokens {
		r.logger.Debug("summarizing directly", "level", level, "length", utf8.RuneCountInString(text))
		c, err := r.call(ctx, text, opts.Model, prompt, stageDirect, level, 0, 1)
		if err != nil {
			return nil, err
		}
		return &Reduction{
			Summary:         c.Text,
			Levels:          level,
			ChunksProcessed: 1,
			InputTokens:     c.InputTokens,
			OutputTokens:    c.OutputTokens,
		}, nil
	}

	chunks := chunker.ChunkText(text, opts.chunking())
	r.metrics.IncrementCounter(telemetry.MetricChunksProduced, int64(len(chunks)))
	r.logger.Debug("split text", "level", level, "chunks", len(chunks))

	var inputTokens, outputTokens int
	summaries := make([]string, 0, len(chunks))
	for batchStart := 0; batchStart < len(chunks); batchStart += r.batchSize {
		batchEnd := min(batchStart+r.batchSize, len(chunks))

		batch := make([]string, 0, batchEnd-batchStart)
		for i := batchStart; i < batchEnd; i++ {
			c, err := r.call(ctx, chunks[i], opts.Model, prompt, stageChunk, level, i, len(chunks))
			if err != nil {
				return nil, err
			}
			batch = append(batch, c.Text)
			inputTokens += c.InputTokens
			outputTokens += c.OutputTokens
		}
		summaries = append(summaries, batch...)

		r.logger.Debug("batch summarized", "level", level, "done", batchEnd, "total", len(chunks))
	}

	combined := strings.Join(summaries, summarySeparator)
	tooLarge := float64(chunker.EstimateTokenCount(combined)) > maxTokens
	shrank := utf8.RuneCountInString(combined) < utf8.RuneCountInString(text)

	if tooLarge && len(chunks) > 1 && shrank {
		child, err := r.Reduce(ctx, combined, opts, level+1)
		if err != nil {
			return nil, err
		}
		return &Reduction{
			Summary:         child.Summary,
			Levels:          child.Levels,
			ChunksProcessed: len(chunks) + child.ChunksProcessed,
			InputTokens:     inputTokens + child.InputTokens,
			OutputTokens:    outputTokens + child.OutputTokens,
		}, nil
	}
	if tooLarge && len(chunks) > 1 {
		r.logger.Warn("chunk summaries did not shrink the text, combining without further recursion",
			"level", level,
			"input_length", utf8.RuneCountInString(text),
			"combined_length", utf8.RuneCountInString(combined))
	}

	final, err := r.call(ctx, combined, opts.Model, prompt, stageCombine, level, len(chunks), len(chunks))
	if err != nil {
		return nil, err
	}
	return &Reduction{
		Summary:         final.Text,
		Levels:          level,
		ChunksProcessed: len(chunks),
		InputTokens:     inputTokens + final.InputTokens,
		OutputTokens:    outputTokens + final.OutputTokens,
	}, nil
}

type stage string

const (
	stageDirect  stage = "direct"
	stageChunk   stage = "chunk"
	stageCombine stage = "combine"
)

// call performs one summarization and rejects empty answers. Failures are
// returned as external errors that identify the level and chunk.
func (r *Reducer) call(ctx context.Context, text, model, prompt string, st stage, level, index, count int) (*summarizer.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, callError(err, st, level, index, count)
	}

	r.metrics.IncrementCounter(telemetry.MetricSummaryCalls, 1)
	c, err := r.summarizer.Summarize(ctx, text, model, prompt)
	if err == nil && (c == nil || strings.TrimSpace(c.Text) == "") {
		err = summarizer.ErrEmptyResponse
	}
	if err != nil {
		return nil, callError(err, st, level, index, count)
	}
	return c, nil
}

func callError(err error, st stage, level, index, count int) error {
	var msg string
	switch st {
	case stageChunk:
		msg = fmt.Sprintf("summarizing chunk %d of %d at level %d", index+1, count, level)
	case stageCombine:
		msg = fmt.Sprintf("combining %d chunk summaries at level %d", count, level)
	default:
		msg = fmt.Sprintf("summarizing text at level %d", level)
	}
	return errortypes.ExternalError(err, msg).WithFields(map[string]interface{}{
		"stage":       string(st),
		"level":       level,
		"chunk_index": index,
		"chunk_count": count,
	})
}

// Overrides carries per-request changes to configured options. Zero values
// keep the base setting.
type Overrides struct {
	Model         string
	SummaryLength string
	SystemPrompt  string
	ChunkSize     int
	ChunkOverlap  int
}

// Apply returns o with ov applied and validated. A bad summary length or
// chunking combination is reported as a validation error.
func (o Options) Apply(ov Overrides) (Options, error) {
	if ov.Model != "" {
		o.Model = ov.Model
	}
	if ov.SummaryLength != "" {
		length, err := ParseSummaryLength(ov.SummaryLength)
		if err != nil {
			return o, errortypes.ValidationError(err, "invalid summary length")
		}
		o.SummaryLength = length
	}
	if ov.SystemPrompt != "" {
		o.SystemPrompt = ov.SystemPrompt
	}
	if ov.ChunkSize > 0 {
		o.ChunkSize = ov.ChunkSize
	}
	if ov.ChunkOverlap > 0 {
		o.ChunkOverlap = ov.ChunkOverlap
	}
	if err := o.chunking().Validate(); err != nil {
		return o, errortypes.ValidationError(err, "invalid chunking options").
			WithField("chunk_size", o.ChunkSize).
			WithField("chunk_overlap", o.ChunkOverlap)
	}
	return o, nil
}
