package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localrivet/recursum/internal/errortypes"
)

// ErrorResponse represents the structure of error responses sent by the API
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes
const (
	ErrorCodeInvalidRequest      = "INVALID_REQUEST"
	ErrorCodeInternalError       = "INTERNAL_ERROR"
	ErrorCodeAuthenticationError = "AUTHENTICATION_ERROR"
	ErrorCodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	ErrorCodeBadGateway          = "BAD_GATEWAY"
	ErrorCodeTimeout             = "TIMEOUT"
	ErrorCodeTooLarge            = "PAYLOAD_TOO_LARGE"
)

// writeErrorResponse writes a structured error response to the HTTP response writer
func writeErrorResponse(w http.ResponseWriter, status int, code, message string, err error) {
	errResp := ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	}

	if err != nil {
		errResp.Details = map[string]interface{}{"error": err.Error()}

		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			for k, v := range appErr.Fields {
				errResp.Details[k] = v
			}
		}
	}

	writeJSON(w, status, errResp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// HandleBadRequest handles 400 Bad Request errors
func HandleBadRequest(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, err)
}

// HandleUnauthorized handles 401 Unauthorized errors
func HandleUnauthorized(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusUnauthorized, ErrorCodeAuthenticationError, message, err)
}

// HandleNotFound handles 404 Not Found errors
func HandleNotFound(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusNotFound, ErrorCodeResourceNotFound, message, err)
}

// HandleInternalError handles 500 Internal Server Error errors
func HandleInternalError(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, message, err)
}

// HandleBadGateway handles 502 Bad Gateway errors
func HandleBadGateway(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusBadGateway, ErrorCodeBadGateway, message, err)
}

// StatusFor maps an error onto the HTTP status HandleError would send.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errortypes.IsValidationError(err), errortypes.IsConfigError(err):
		return http.StatusBadRequest
	case errortypes.IsNotFoundError(err):
		return http.StatusNotFound
	case errortypes.IsPermissionError(err):
		return http.StatusUnauthorized
	case errortypes.IsExternalError(err), errortypes.IsNetworkError(err), errortypes.IsType(err, errortypes.ErrorTypeAPI):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes the response its type calls for.
func HandleError(w http.ResponseWriter, log *slog.Logger, err error) {
	errortypes.LogError(log, err)

	switch status := StatusFor(err); status {
	case http.StatusGatewayTimeout:
		writeErrorResponse(w, status, ErrorCodeTimeout, "Request timed out", err)
	case http.StatusBadRequest:
		HandleBadRequest(w, "Invalid request parameters", err)
	case http.StatusNotFound:
		HandleNotFound(w, "Resource not found", err)
	case http.StatusUnauthorized:
		HandleUnauthorized(w, "Permission denied", err)
	case http.StatusBadGateway:
		HandleBadGateway(w, "Downstream service error", err)
	default:
		HandleInternalError(w, "An unexpected error occurred", err)
	}
}
