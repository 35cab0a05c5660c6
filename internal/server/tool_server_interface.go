package server

import (
	"context"

	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/resultstore"
)

// ToolServer defines the interface for the MCP server that exposes
// summarization to MCP clients.
type ToolServer interface {
	// Initialize registers the tools.
	Initialize() error

	// Start serves MCP over stdio until the client disconnects.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}

// Backend is what the tool handlers call into.
type Backend interface {
	// DefaultOptions returns the configured reduction options.
	DefaultOptions() reducer.Options

	// Summarize reduces text and, when save is set, stores the result.
	// The returned record has an empty ID when it was not saved.
	Summarize(ctx context.Context, text, source string, opts reducer.Options, save bool) (*resultstore.Record, error)

	GetSummary(ctx context.Context, id string) (*resultstore.Record, error)
	ListSummaries(ctx context.Context, limit int) ([]*resultstore.Record, error)
	DeleteSummary(ctx context.Context, id string) error
	ClearSummaries(ctx context.Context) (int, error)
}
