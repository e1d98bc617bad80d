package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagprops/internal/api"
	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
)

// NewTestServer creates an API server backed by a small pattern cache.
func NewTestServer(t *testing.T, opts api.Options) *api.Server {
	t.Helper()
	cache, err := targeting.NewPatternCache(64)
	if err != nil {
		t.Fatalf("NewPatternCache: %v", err)
	}
	return api.NewServer(targeting.NewMatcher(cache, nil), zerolog.Nop(), opts)
}

// NewHTTPServer starts a real listener for the API server and closes it when
// the test ends.
func NewHTTPServer(t *testing.T, opts api.Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewTestServer(t, opts).Router())
	t.Cleanup(ts.Close)
	return ts
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// MustFilter decodes a JSON filter or fails the test.
func MustFilter(t *testing.T, raw string) properties.PropertyFilter {
	t.Helper()
	var f properties.PropertyFilter
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("bad filter %s: %v", raw, err)
	}
	return f
}

// MustProps decodes a JSON property object or fails the test.
func MustProps(t *testing.T, raw string) properties.Properties {
	t.Helper()
	props, err := properties.DecodeProperties([]byte(raw))
	if err != nil {
		t.Fatalf("bad properties %s: %v", raw, err)
	}
	return props
}
