package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/resultstore"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/telemetry"
	"github.com/localrivet/recursum/internal/tools"
)

type fakeBackend struct {
	records    map[string]*resultstore.Record
	lastText   string
	lastSource string
	lastOpts   reducer.Options
	err        error
	health     summarizer.HealthStatus
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: map[string]*resultstore.Record{}, health: summarizer.StatusHealthy}
}

func (f *fakeBackend) DefaultOptions() reducer.Options { return reducer.DefaultOptions() }

func (f *fakeBackend) Summarize(_ context.Context, text, source string, opts reducer.Options, save bool) (*resultstore.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastText, f.lastSource, f.lastOpts = text, source, opts
	rec := &resultstore.Record{
		Source:    source,
		CreatedAt: time.Now(),
		Result:    reducer.Result{Summary: "short version", OriginalLength: len(text), Levels: 1, ChunksProcessed: 1},
	}
	if save {
		rec.ID = fmt.Sprintf("rec%d", len(f.records)+1)
		f.records[rec.ID] = rec
	}
	return rec, nil
}

func (f *fakeBackend) GetSummary(_ context.Context, id string) (*resultstore.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, errortypes.NotFoundError(nil, "summary not found")
	}
	return rec, nil
}

func (f *fakeBackend) ListSummaries(_ context.Context, limit int) ([]*resultstore.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*resultstore.Record
	for _, r := range f.records {
		if len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteSummary(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return errortypes.NotFoundError(nil, "summary not found")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeBackend) Stats() telemetry.Snapshot {
	m := telemetry.NewMetricsCollector()
	m.IncrementCounter(telemetry.MetricReductions, 3)
	return m.Snapshot()
}

func (f *fakeBackend) Health(context.Context) (*summarizer.HealthReport, error) {
	return &summarizer.HealthReport{Status: f.health, Version: "test"}, nil
}

func newTestServer(b Backend, cfg Config) *Server {
	return NewServer(b, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummarize_JSON(t *testing.T) {
	b := newFakeBackend()
	srv := newTestServer(b, Config{})

	body := `{"text":"A long document.","source":"doc","summary_length":"long","save":true}`
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp tools.SummarizeTextResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "rec1" || resp.Result == nil || resp.Result.Summary != "short version" {
		t.Errorf("unexpected response %+v", resp)
	}
	if b.lastOpts.SummaryLength != reducer.LengthLong || b.lastSource != "doc" {
		t.Errorf("options not forwarded: %+v, source %q", b.lastOpts, b.lastSource)
	}
}

func TestSummarize_Multipart(t *testing.T) {
	b := newFakeBackend()
	srv := newTestServer(b, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.md")
	fw.Write([]byte("# Notes\n\nSome body text."))
	mw.WriteField("chunk_size", "800")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if b.lastText != "Notes\n\nSome body text." || b.lastSource != "notes.md" {
		t.Errorf("unexpected parsed upload %q from %q", b.lastText, b.lastSource)
	}
	if b.lastOpts.ChunkSize != 800 {
		t.Errorf("expected chunk size 800, got %d", b.lastOpts.ChunkSize)
	}
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		backendErr error
		wantStatus int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"missing text", `{"text":"  "}`, nil, http.StatusBadRequest},
		{"bad length", `{"text":"x","summary_length":"huge"}`, nil, http.StatusBadRequest},
		{"provider failure", `{"text":"x"}`, errortypes.ExternalError(errors.New("503"), "summarizing text at level 1"), http.StatusBadGateway},
		{"timeout", `{"text":"x"}`, errortypes.ExternalError(context.DeadlineExceeded, "summarizing text at level 1"), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.err = tt.backendErr
			rec := do(t, newTestServer(b, Config{}), httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Status != "error" {
				t.Errorf("expected JSON error body, got %v / %+v", err, resp)
			}
		})
	}
}

func TestSummarize_TooLarge(t *testing.T) {
	srv := newTestServer(newFakeBackend(), Config{MaxUploadBytes: 10})
	body := `{"text":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(body)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestSummariesCRUD(t *testing.T) {
	b := newFakeBackend()
	srv := newTestServer(b, Config{})
	do(t, srv, httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"doc","save":true}`)))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/summaries", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"rec1"`) {
		t.Errorf("unexpected list response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/summaries?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/summaries/rec1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "short version") {
		t.Errorf("unexpected get response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/summaries/rec1", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/summaries/rec1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStatsAndHealth(t *testing.T) {
	b := newFakeBackend()
	srv := newTestServer(b, Config{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), telemetry.MetricReductions) {
		t.Errorf("unexpected stats response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected healthy 200, got %d", rec.Code)
	}

	b.health = summarizer.StatusUnhealthy
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when unhealthy, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(newFakeBackend(), Config{APIKey: "secret"})

	tests := []struct {
		name       string
		path       string
		auth       string
		wantStatus int
	}{
		{"missing header", "/api/stats", "", http.StatusUnauthorized},
		{"wrong key", "/api/stats", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "/api/stats", "Bearer secret", http.StatusOK},
		{"health is public", "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if rec := do(t, srv, req); rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errortypes.ValidationError(nil, "bad"), http.StatusBadRequest},
		{errortypes.ConfigError(nil, "bad"), http.StatusBadRequest},
		{errortypes.NotFoundError(nil, "gone"), http.StatusNotFound},
		{errortypes.ExternalError(errors.New("x"), "call"), http.StatusBadGateway},
		{errortypes.DatabaseError(errors.New("x"), "db"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
