package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses.
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response and
// records the path of every request it receives.
func MockServer(t *testing.T, config MockResponseConfig) (*httptest.Server, *[]string) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody == nil {
			return
		}
		var respBytes []byte
		switch body := config.ResponseBody.(type) {
		case string:
			respBytes = []byte(body)
		case []byte:
			respBytes = body
		default:
			var err error
			respBytes, err = json.Marshal(body)
			if err != nil {
				t.Errorf("Failed to marshal mock response: %v", err)
				return
			}
		}
		if _, err := w.Write(respBytes); err != nil {
			t.Errorf("Failed to write response body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

// TestProvider is a scripted implementation of LLMProvider for testing. It
// returns the configured errors in order, then the configured response.
type TestProvider struct {
	name     string
	response Response
	errs     []error

	mu    sync.Mutex
	calls int
}

// NewTestProvider creates a new TestProvider that fails with errs, one per
// call, before answering with text.
func NewTestProvider(name string, text string, errs ...error) *TestProvider {
	return &TestProvider{
		name:     name,
		response: Response{Text: text, InputTokens: len(text), OutputTokens: len(text) / 2},
		errs:     errs,
	}
}

// Name returns the provider name.
func (p *TestProvider) Name() string {
	return p.name
}

// Complete returns the next scripted error or the configured response.
func (p *TestProvider) Complete(ctx context.Context, _ Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}
	resp := p.response
	return &resp, nil
}

// Calls returns how many times Complete was invoked.
func (p *TestProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// CapturingProvider is a provider that captures the last request for testing.
type CapturingProvider struct {
	name     string
	response Response
	err      error

	mu       sync.Mutex
	captured Request
}

// NewCapturingProvider creates a new CapturingProvider.
func NewCapturingProvider(name, text string, err error) *CapturingProvider {
	return &CapturingProvider{
		name:     name,
		response: Response{Text: text},
		err:      err,
	}
}

// Name returns the provider name.
func (p *CapturingProvider) Name() string {
	return p.name
}

// Complete captures the request and returns the configured response.
func (p *CapturingProvider) Complete(_ context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.captured = req
	if p.err != nil {
		return nil, p.err
	}
	resp := p.response
	return &resp, nil
}

// Captured returns the last request passed to Complete.
func (p *CapturingProvider) Captured() Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captured
}
