package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/recursum/internal/telemetry"
)

// Version is reported in health reports.
var Version = "dev"

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates a component is operational but with reduced capability
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates a component is not operational
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport contains information about the current health of the AI summarizer
type HealthReport struct {
	Status        HealthStatus       `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	Components    map[string]string  `json:"components"`
	Providers     map[string]bool    `json:"providers"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
	CacheStats    map[string]int64   `json:"cache_stats"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests int64              `json:"total_requests"`
	Version       string             `json:"version"`
}

// CreateHealthReport probes every provider and summarizes call statistics.
func CreateHealthReport(ctx context.Context, summarizer *AISummarizer) (*HealthReport, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is nil")
	}

	m := summarizer.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	providerHealth := summarizer.CheckProviderHealth(ctx)

	status := StatusHealthy
	workingProviders := 0
	for _, isHealthy := range providerHealth {
		if isHealthy {
			workingProviders++
		}
	}
	if workingProviders == 0 {
		status = StatusUnhealthy
	} else if workingProviders < len(providerHealth) {
		status = StatusDegraded
	}

	totalSuccess := m.GetCounter(telemetry.MetricAPICallsSuccess)
	totalFailure := m.GetCounter(telemetry.MetricAPICallsFailure)
	totalRequests := totalSuccess + totalFailure

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(totalSuccess) / float64(totalRequests) * 100.0
	}

	responseTimes := map[string]float64{
		"total": millis(m.GetTimerAverage(telemetry.MetricSummarizeTime)),
	}
	for name := range providerHealth {
		responseTimes[name] = millis(m.GetTimerAverage(telemetry.ResponseTimeMetric(name)))
	}

	cacheStats := map[string]int64{
		"hits":   m.GetCounter(telemetry.MetricCacheHits),
		"misses": m.GetCounter(telemetry.MetricCacheMisses),
		"size":   int64(m.GetGauge(telemetry.MetricCacheSize)),
	}

	components := map[string]string{
		"cache":     string(StatusHealthy),
		"primary":   string(StatusUnhealthy),
		"fallbacks": string(StatusUnhealthy),
	}
	primary := summarizer.ProviderName()
	for provider, healthy := range providerHealth {
		if healthy && provider == primary {
			components["primary"] = string(StatusHealthy)
		} else if healthy {
			components["fallbacks"] = string(StatusHealthy)
		}
	}

	return &HealthReport{
		Status:        status,
		Timestamp:     time.Now(),
		Components:    components,
		Providers:     providerHealth,
		ResponseTimes: responseTimes,
		CacheStats:    cacheStats,
		SuccessRate:   successRate,
		TotalRequests: totalRequests,
		Version:       Version,
	}, nil
}

// CreateHealthReportJSON generates a JSON health report for the AI summarizer
func CreateHealthReportJSON(ctx context.Context, summarizer *AISummarizer) (string, error) {
	report, err := CreateHealthReport(ctx, summarizer)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ResetMetrics resets all metrics for the AI summarizer
func ResetMetrics(summarizer *AISummarizer) error {
	if summarizer == nil {
		return fmt.Errorf("summarizer is nil")
	}

	m := summarizer.GetMetrics()
	if m == nil {
		return fmt.Errorf("metrics collector is nil")
	}

	m.Reset()
	return nil
}
