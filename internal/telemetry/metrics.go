// Package telemetry provides metrics collection and reporting
// for monitoring summarization throughput and provider behaviour.
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxTimerSamples bounds the durations kept per timer.
const maxTimerSamples = 100

// MetricsCollector provides a thread-safe interface for collecting
// application metrics for monitoring and troubleshooting.
type MetricsCollector struct {
	counters   map[string]int64
	gauges     map[string]float64
	timers     map[string][]time.Duration
	latestTime map[string]time.Time
	mu         sync.RWMutex
}

// Summarizer metrics.
const (
	MetricAPICallsSuccess = "summarizer.api_calls.success"
	MetricAPICallsFailure = "summarizer.api_calls.failure"

	MetricRetryAttempts = "summarizer.retry_attempts"
	MetricRetrySuccess  = "summarizer.retry_success"

	MetricFallbackAttempts = "summarizer.fallback_attempts"
	MetricFallbackSuccess  = "summarizer.fallback_success"

	MetricCacheHits   = "summarizer.cache.hits"
	MetricCacheMisses = "summarizer.cache.misses"
	MetricCacheSize   = "summarizer.cache.size"

	MetricSummarizeTime = "summarizer.total_time"
)

// Reduction metrics.
const (
	MetricReductions        = "reducer.reductions"
	MetricReductionFailures = "reducer.failures"
	MetricChunksProduced    = "reducer.chunks"
	MetricSummaryCalls      = "reducer.summary_calls"
	MetricInputTokens       = "reducer.tokens.input"
	MetricOutputTokens      = "reducer.tokens.output"
	MetricLastLevels        = "reducer.levels.last"
	MetricReductionTime     = "reducer.total_time"
	MetricLastReduction     = "reducer.last_reduction"
)

// Per-provider metric prefixes; see ProviderMetric.
const (
	prefixAPICalls     = "summarizer.api_calls."
	prefixResponseTime = "summarizer.response_time."
	prefixHealth       = "summarizer.health."
)

// APICallsMetric names the call counter of a provider.
func APICallsMetric(provider string) string { return prefixAPICalls + provider }

// ResponseTimeMetric names the latency timer of a provider.
func ResponseTimeMetric(provider string) string { return prefixResponseTime + provider }

// HealthMetric names the health gauge of a provider.
func HealthMetric(provider string) string { return prefixHealth + provider }

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		timers:     make(map[string][]time.Duration),
		latestTime: make(map[string]time.Time),
	}
}

// IncrementCounter increments a named counter by the specified amount
func (m *MetricsCollector) IncrementCounter(name string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name] += amount
}

// SetGauge sets a named gauge to the specified value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gauges[name] = value
}

// RecordTimer records a duration for the specified timer
func (m *MetricsCollector) RecordTimer(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := append(m.timers[name], duration)
	if len(samples) > maxTimerSamples {
		samples = samples[len(samples)-maxTimerSamples:]
	}
	m.timers[name] = samples
}

// RecordTimestamp records the current time for the specified event
func (m *MetricsCollector) RecordTimestamp(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestTime[name] = time.Now()
}

// GetCounter retrieves the current value of a counter
func (m *MetricsCollector) GetCounter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters[name]
}

// GetGauge retrieves the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.gauges[name]
}

// GetTimerAverage calculates the average duration for a timer
func (m *MetricsCollector) GetTimerAverage(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return average(m.timers[name])
}

// GetTimerP95 calculates the 95th percentile duration for a timer
func (m *MetricsCollector) GetTimerP95(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return p95(m.timers[name])
}

// GetTimeSince calculates the time elapsed since a recorded timestamp
func (m *MetricsCollector) GetTimeSince(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timestamp, exists := m.latestTime[name]
	if !exists {
		return 0
	}

	return time.Since(timestamp)
}

// TimerStats summarizes the samples of one timer.
type TimerStats struct {
	AverageMS float64 `json:"avg_ms"`
	P95MS     float64 `json:"p95_ms"`
	Count     int     `json:"count"`
}

// Snapshot is a point-in-time copy of all metrics, suitable for JSON output.
type Snapshot struct {
	Counters map[string]int64      `json:"counters"`
	Gauges   map[string]float64    `json:"gauges"`
	Timers   map[string]TimerStats `json:"timers"`
}

// Snapshot copies the current metrics.
func (m *MetricsCollector) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
		Timers:   make(map[string]TimerStats, len(m.timers)),
	}
	for k, v := range m.counters {
		s.Counters[k] = v
	}
	for k, v := range m.gauges {
		s.Gauges[k] = v
	}
	for k, v := range m.timers {
		s.Timers[k] = TimerStats{
			AverageMS: toMillis(average(v)),
			P95MS:     toMillis(p95(v)),
			Count:     len(v),
		}
	}
	return s
}

// GetReport generates a report of all collected metrics
func (m *MetricsCollector) GetReport() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Metrics Report:\n")
	b.WriteString("==============\n\n")

	b.WriteString("Counters:\n")
	for _, name := range sortedKeys(m.counters) {
		fmt.Fprintf(&b, "  %s: %d\n", name, m.counters[name])
	}

	b.WriteString("\nGauges:\n")
	for _, name := range sortedKeys(m.gauges) {
		fmt.Fprintf(&b, "  %s: %.2f\n", name, m.gauges[name])
	}

	b.WriteString("\nTimers (avg):\n")
	for _, name := range sortedKeys(m.timers) {
		samples := m.timers[name]
		fmt.Fprintf(&b, "  %s: avg=%v p95=%v count=%d\n", name, average(samples), p95(samples), len(samples))
	}

	b.WriteString("\nTime Since:\n")
	for _, name := range sortedKeys(m.latestTime) {
		ts := m.latestTime[name]
		fmt.Fprintf(&b, "  %s: %v ago (%s)\n", name, time.Since(ts), ts.Format(time.RFC3339))
	}

	return b.String()
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timers = make(map[string][]time.Duration)
	m.latestTime = make(map[string]time.Time)
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func p95(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
