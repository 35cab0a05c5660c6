// Package tools defines the request and response schemas of the recursum
// MCP tools.
package tools

import (
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/resultstore"
)

const (
	// ToolSummarizeText is the name of the summarize_text MCP tool
	ToolSummarizeText = "summarize_text"

	// ToolGetSummary is the name of the get_summary MCP tool
	ToolGetSummary = "get_summary"

	// ToolListSummaries is the name of the list_summaries MCP tool
	ToolListSummaries = "list_summaries"

	// ToolDeleteSummary is the name of the delete_summary MCP tool
	ToolDeleteSummary = "delete_summary"

	// ToolClearSummaries is the name of the clear_summaries MCP tool
	ToolClearSummaries = "clear_summaries"

	// DefaultListLimit is the number of summaries returned when a
	// list_summaries request has no limit
	DefaultListLimit = 10

	// ClearConfirmation must be sent with clear_summaries
	ClearConfirmation = "confirm"

	StatusSuccess = "success"
	StatusError   = "error"
)

// SummarizeTextRequest defines the input schema for summarize_text tool.
// Zero-valued options fall back to the server configuration.
type SummarizeTextRequest struct {
	// Text is the document to summarize
	Text string `json:"text"`

	// Source labels where the text came from, such as a file name
	Source string `json:"source,omitempty"`

	// SummaryLength is short, medium or long
	SummaryLength string `json:"summary_length,omitempty"`

	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`

	// Save stores the result so it can be fetched with get_summary
	Save bool `json:"save,omitempty"`
}

// Overrides converts the request options for the reducer.
func (r SummarizeTextRequest) Overrides() reducer.Overrides {
	return reducer.Overrides{
		Model:         r.Model,
		SummaryLength: r.SummaryLength,
		SystemPrompt:  r.SystemPrompt,
		ChunkSize:     r.ChunkSize,
		ChunkOverlap:  r.ChunkOverlap,
	}
}

// SummarizeTextResponse defines the output schema for summarize_text tool
type SummarizeTextResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// ID is set when the result was saved
	ID string `json:"id,omitempty"`

	Result *reducer.Result `json:"result,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// GetSummaryRequest defines the input schema for get_summary tool
type GetSummaryRequest struct {
	ID string `json:"id"`
}

// GetSummaryResponse defines the output schema for get_summary tool
type GetSummaryResponse struct {
	Status  string              `json:"status"`
	Summary *resultstore.Record `json:"summary,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// ListSummariesRequest defines the input schema for list_summaries tool
type ListSummariesRequest struct {
	// Limit is the maximum number of results to return.
	// If not specified, DefaultListLimit will be used
	Limit int `json:"limit,omitempty"`
}

// ListSummariesResponse defines the output schema for list_summaries tool
type ListSummariesResponse struct {
	Status    string                `json:"status"`
	Summaries []*resultstore.Record `json:"summaries"`
	Error     string                `json:"error,omitempty"`
}

// DeleteSummaryRequest defines the input schema for delete_summary tool
type DeleteSummaryRequest struct {
	ID string `json:"id"`
}

// DeleteSummaryResponse defines the output schema for delete_summary tool
type DeleteSummaryResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ClearSummariesRequest defines the input schema for clear_summaries tool
type ClearSummariesRequest struct {
	// Confirmation must be set to "confirm" to prevent accidental clearing
	Confirmation string `json:"confirmation"`
}

// ClearSummariesResponse defines the output schema for clear_summaries tool
type ClearSummariesResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
	Error        string `json:"error,omitempty"`
}
