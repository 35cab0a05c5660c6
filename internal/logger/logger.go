// Package logger builds the process-wide slog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat defines how log records are rendered.
type LogFormat string

const (
	TEXT LogFormat = "text"
	JSON LogFormat = "json"
)

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      LogFormat
	Output      io.Writer
	DefaultTags map[string]interface{}
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": "recursum"},
	}
}

// New creates a slog.Logger with the given configuration
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level}
	var handler slog.Handler
	if config.Format == JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	for k, v := range config.DefaultTags {
		logger = logger.With(k, v)
	}
	return logger
}

// ParseLevel maps a level name onto a slog.Level. "warning" is accepted as
// an alias of "warn".
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ParseFormat maps a format name onto a LogFormat.
func ParseFormat(s string) (LogFormat, error) {
	switch LogFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", TEXT:
		return TEXT, nil
	case JSON:
		return JSON, nil
	default:
		return TEXT, fmt.Errorf("unknown log format %q", s)
	}
}

// FromSettings builds a logger from level and format names, as found in the
// logging section of the configuration. Unknown names fall back to info and
// text, and the returned error says which one was rejected.
func FromSettings(level, format string, out io.Writer) (*slog.Logger, error) {
	lvl, lerr := ParseLevel(level)
	fmtt, ferr := ParseFormat(format)

	cfg := DefaultConfig()
	cfg.Level = lvl
	cfg.Format = fmtt
	if out != nil {
		cfg.Output = out
	}

	if lerr != nil {
		return New(cfg), lerr
	}
	return New(cfg), ferr
}
