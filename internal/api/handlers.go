package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/parser"
	"github.com/localrivet/recursum/internal/resultstore"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/tools"
)

// handleSummarize accepts either a JSON body shaped like the summarize_text
// tool request or a multipart form with a "file" part and the same options
// as form fields.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var req tools.SummarizeTextRequest
	var err error

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = s.readUpload(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			err = errortypes.ValidationError(err, "invalid JSON body")
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge,
				fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), nil)
			return
		}
		HandleError(w, s.log, err)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		HandleBadRequest(w, "text is required", nil)
		return
	}

	opts, err := s.backend.DefaultOptions().Apply(req.Overrides())
	if err != nil {
		HandleError(w, s.log, err)
		return
	}

	rec, err := s.backend.Summarize(r.Context(), req.Text, req.Source, opts, req.Save)
	if err != nil {
		HandleError(w, s.log, err)
		return
	}

	result := rec.Result
	status := http.StatusOK
	if rec.ID != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, tools.SummarizeTextResponse{
		Status: tools.StatusSuccess,
		ID:     rec.ID,
		Result: &result,
	})
}

// readUpload parses a multipart upload into a summarize request.
func (s *Server) readUpload(r *http.Request) (tools.SummarizeTextRequest, error) {
	var req tools.SummarizeTextRequest

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return req, errortypes.ValidationError(err, "invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, errortypes.ValidationError(err, "file is required")
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return req, errortypes.ValidationError(fmt.Errorf("unsupported file type: %s", filepath.Ext(filename)), "cannot parse upload")
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return req, errortypes.InternalError(err, "failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return req, &http.MaxBytesError{Limit: s.cfg.MaxUploadBytes}
	}

	doc, err := parser.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return req, err
	}

	req.Text = doc.Text()
	req.Source = filename
	if v := r.FormValue("source"); v != "" {
		req.Source = v
	}
	req.SummaryLength = r.FormValue("summary_length")
	req.Model = r.FormValue("model")
	req.SystemPrompt = r.FormValue("system_prompt")
	req.ChunkSize = formInt(r, "chunk_size")
	req.ChunkOverlap = formInt(r, "chunk_overlap")
	req.Save, _ = strconv.ParseBool(r.FormValue("save"))
	return req, nil
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	limit := tools.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			HandleBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	recs, err := s.backend.ListSummaries(r.Context(), limit)
	if err != nil {
		HandleError(w, s.log, err)
		return
	}
	if recs == nil {
		recs = []*resultstore.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": recs})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	rec, err := s.backend.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteSummary(r.Context(), chi.URLParam(r, "id")); err != nil {
		HandleError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.backend.Health(r.Context())
	if err != nil {
		HandleError(w, s.log, err)
		return
	}
	status := http.StatusOK
	if report.Status == summarizer.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
