// Package server provides the MCP tool server for recursum.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/resultstore"
	"github.com/localrivet/recursum/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// ServerName is the name the MCP server announces.
const ServerName = "recursum"

// MCPToolServer implements ToolServer on a gomcp server.
type MCPToolServer struct {
	backend   Backend
	logger    *slog.Logger
	mcpServer server.Server

	mu      sync.RWMutex
	baseCtx context.Context
}

// NewToolServer creates a new MCPToolServer instance.
func NewToolServer(backend Backend, logger *slog.Logger) *MCPToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPToolServer{
		backend: backend,
		logger:  logger.With("component", "mcp"),
		baseCtx: context.Background(),
	}
}

// Initialize creates the MCP server and registers the tools.
func (s *MCPToolServer) Initialize() error {
	s.logger.Info("Initializing MCP tool server")

	if s.backend == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	s.mcpServer = s.RegisterTools(server.NewServer(ServerName))
	s.logger.Info("MCP tool server initialized", "tool_count", 5)
	return nil
}

// RegisterTools adds the recursum tools to srv, which lets them be embedded
// in another MCP server.
func (s *MCPToolServer) RegisterTools(srv server.Server) server.Server {
	return srv.
		Tool(tools.ToolSummarizeText, "Summarize a document of any length by recursive chunking", s.handleSummarizeText).
		Tool(tools.ToolGetSummary, "Fetch a saved summary by ID", s.handleGetSummary).
		Tool(tools.ToolListSummaries, "List saved summaries, newest first", s.handleListSummaries).
		Tool(tools.ToolDeleteSummary, "Delete a saved summary by ID", s.handleDeleteSummary).
		Tool(tools.ToolClearSummaries, "Delete every saved summary", s.handleClearSummaries)
}

// Start serves MCP over stdio. ctx bounds the summarization calls made by
// tool handlers.
func (s *MCPToolServer) Start(ctx context.Context) error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("Starting MCP tool server on stdio")
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPToolServer) Stop() error {
	s.logger.Info("Stopping MCP tool server")
	// The server will exit when stdin is closed
	return nil
}

func (s *MCPToolServer) requestContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// fail logs err and renders it into a tool response message.
func (s *MCPToolServer) fail(err error) string {
	errortypes.LogError(s.logger, err)
	return err.Error()
}

// handleSummarizeText handles the summarize_text MCP tool call.
func (s *MCPToolServer) handleSummarizeText(_ *server.Context, req tools.SummarizeTextRequest) (tools.SummarizeTextResponse, error) {
	s.logger.Info("Processing summarize_text request", "text_length", len(req.Text), "save", req.Save)

	response := tools.SummarizeTextResponse{Status: tools.StatusSuccess}

	if strings.TrimSpace(req.Text) == "" {
		response.Status = tools.StatusError
		response.Error = s.fail(errortypes.ValidationError(errors.New("text is empty"), "invalid summarize_text request"))
		return response, nil
	}

	opts, err := s.backend.DefaultOptions().Apply(req.Overrides())
	if err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	rec, err := s.backend.Summarize(s.requestContext(), req.Text, req.Source, opts, req.Save)
	if err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	result := rec.Result
	response.ID = rec.ID
	response.Result = &result
	s.logger.Info("Successfully summarized text", "id", rec.ID, "levels", result.Levels, "chunks", result.ChunksProcessed)
	return response, nil
}

// handleGetSummary handles the get_summary MCP tool call.
func (s *MCPToolServer) handleGetSummary(_ *server.Context, req tools.GetSummaryRequest) (tools.GetSummaryResponse, error) {
	s.logger.Info("Processing get_summary request", "id", req.ID)

	response := tools.GetSummaryResponse{Status: tools.StatusSuccess}

	if req.ID == "" {
		response.Status = tools.StatusError
		response.Error = s.fail(errortypes.ValidationError(errors.New("id cannot be empty"), "invalid get_summary request"))
		return response, nil
	}

	rec, err := s.backend.GetSummary(s.requestContext(), req.ID)
	if err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	response.Summary = rec
	return response, nil
}

// handleListSummaries handles the list_summaries MCP tool call.
func (s *MCPToolServer) handleListSummaries(_ *server.Context, req tools.ListSummariesRequest) (tools.ListSummariesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = tools.DefaultListLimit
	}
	s.logger.Info("Processing list_summaries request", "limit", limit)

	response := tools.ListSummariesResponse{Status: tools.StatusSuccess, Summaries: []*resultstore.Record{}}

	recs, err := s.backend.ListSummaries(s.requestContext(), limit)
	if err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	if recs != nil {
		response.Summaries = recs
	}
	s.logger.Info("Listed summaries", "count", len(response.Summaries))
	return response, nil
}

// handleDeleteSummary handles the delete_summary MCP tool call.
func (s *MCPToolServer) handleDeleteSummary(_ *server.Context, req tools.DeleteSummaryRequest) (tools.DeleteSummaryResponse, error) {
	s.logger.Info("Processing delete_summary request", "id", req.ID)

	response := tools.DeleteSummaryResponse{Status: tools.StatusSuccess}

	if req.ID == "" {
		response.Status = tools.StatusError
		response.Error = s.fail(errortypes.ValidationError(errors.New("id cannot be empty"), "invalid delete_summary request"))
		return response, nil
	}

	if err := s.backend.DeleteSummary(s.requestContext(), req.ID); err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	s.logger.Info("Successfully deleted summary", "id", req.ID)
	return response, nil
}

// handleClearSummaries handles the clear_summaries MCP tool call.
func (s *MCPToolServer) handleClearSummaries(_ *server.Context, req tools.ClearSummariesRequest) (tools.ClearSummariesResponse, error) {
	s.logger.Info("Processing clear_summaries request")

	response := tools.ClearSummariesResponse{Status: tools.StatusSuccess}

	if req.Confirmation != tools.ClearConfirmation {
		response.Status = tools.StatusError
		response.Error = "Confirmation required. Set confirmation to 'confirm' to proceed with clearing all summaries"
		s.logger.Warn("Clear summaries operation rejected: missing confirmation")
		return response, nil
	}

	count, err := s.backend.ClearSummaries(s.requestContext())
	if err != nil {
		response.Status = tools.StatusError
		response.Error = s.fail(err)
		return response, nil
	}

	response.DeletedCount = count
	s.logger.Info("Successfully cleared summaries", "count", count)
	return response, nil
}
