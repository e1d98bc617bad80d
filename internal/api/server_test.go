package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
)

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	cache, err := targeting.NewPatternCache(16)
	if err != nil {
		t.Fatalf("NewPatternCache: %v", err)
	}
	return NewServer(targeting.NewMatcher(cache, nil), zerolog.Nop(), opts).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	handler := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got %s", rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	handler := newTestServer(t, Options{})
	rr := doJSON(t, handler, http.MethodGet, "/v1/flags/snapshot", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Code != ErrCodeNotFound {
		t.Errorf("Expected code NOT_FOUND, got %s", resp.Code)
	}
}

func TestHandleOperators(t *testing.T) {
	handler := newTestServer(t, Options{})
	rr := doJSON(t, handler, http.MethodGet, "/v1/properties/operators", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp OperatorsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if diff := cmp.Diff(properties.Operators, resp.Operators); diff != "" {
		t.Errorf("operators mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleMatch(t *testing.T) {
	tests := []struct {
		name string
		body string
		opts Options
		want MatchResponse
	}{
		{
			name: "exact match",
			body: `{"filter":{"key":"email","value":"test@posthog.com","prop_type":"person"},"properties":{"email":"test@posthog.com"}}`,
			want: MatchResponse{Matched: true},
		},
		{
			name: "exact list match is case insensitive",
			body: `{"filter":{"key":"plan","value":["Pro","team"],"operator":"exact","prop_type":"person"},"properties":{"plan":"TEAM"}}`,
			want: MatchResponse{Matched: true},
		},
		{
			name: "numeric comparison on string observation",
			body: `{"filter":{"key":"age","value":18,"operator":"gte","prop_type":"person"},"properties":{"age":"21"}}`,
			want: MatchResponse{Matched: true},
		},
		{
			name: "absent key in full mode decides by operator",
			body: `{"filter":{"key":"email","value":"x","operator":"is_not","prop_type":"person"},"properties":{}}`,
			want: MatchResponse{Matched: true},
		},
		{
			name: "absent key in partial mode is inconclusive",
			body: `{"filter":{"key":"email","value":"x","prop_type":"person"},"properties":{},"partial":true}`,
			want: MatchResponse{
				Inconclusive: true,
				Error: &MatchErrorDTO{
					Kind:    properties.ErrorMissingProperty,
					Message: "missing_property: can't match properties without a value. Missing property: email",
					Key:     "email",
				},
			},
		},
		{
			name: "server default partial mode",
			body: `{"filter":{"key":"email","value":"x","prop_type":"person"},"properties":{}}`,
			opts: Options{DefaultPartial: true},
			want: MatchResponse{
				Inconclusive: true,
				Error: &MatchErrorDTO{
					Kind:    properties.ErrorMissingProperty,
					Message: "missing_property: can't match properties without a value. Missing property: email",
					Key:     "email",
				},
			},
		},
		{
			name: "request overrides default partial mode",
			body: `{"filter":{"key":"email","value":"x","operator":"is_not","prop_type":"person"},"properties":{},"partial":false}`,
			opts: Options{DefaultPartial: true},
			want: MatchResponse{Matched: true},
		},
		{
			name: "invalid regex is a non-match",
			body: `{"filter":{"key":"email","value":"(","operator":"regex","prop_type":"person"},"properties":{"email":"("}}`,
			want: MatchResponse{Matched: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, tt.opts)
			rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match", tt.body)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var got MatchResponse
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleMatch_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "invalid JSON",
			body:       `{"filter":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidJSON,
		},
		{
			name:       "missing filter",
			body:       `{"properties":{"a":1}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeMissingField,
		},
		{
			name:       "unknown operator",
			body:       `{"filter":{"key":"a","value":1,"operator":"between","prop_type":"person"},"properties":{"a":1}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidOperator,
		},
		{
			name:       "observed value is not a number",
			body:       `{"filter":{"key":"age","value":1,"operator":"gt","prop_type":"person"},"properties":{"age":"old"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "filter value is not a number",
			body:       `{"filter":{"key":"age","value":"one","operator":"lt","prop_type":"person"},"properties":{"age":3}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "cohort operator",
			body:       `{"filter":{"key":"id","value":["a"],"operator":"in","prop_type":"cohort"},"properties":{"id":"a"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, Options{})
			rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match", tt.body)

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			resp := decodeErrorResponse(t, rr)
			if resp.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
			}
			if resp.RequestID == "" {
				t.Error("Expected request_id to be set")
			}
		})
	}
}

func TestHandleMatch_BodyTooLarge(t *testing.T) {
	handler := newTestServer(t, Options{MaxRequestBodyBytes: 64})
	body := `{"filter":{"key":"a","value":"` + strings.Repeat("x", 256) + `","prop_type":"person"},"properties":{}}`

	rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Code != ErrCodeRequestTooLarge {
		t.Errorf("Expected code REQUEST_TOO_LARGE, got %s", resp.Code)
	}
}

func TestHandleMatchAll(t *testing.T) {
	handler := newTestServer(t, Options{})

	t.Run("all filters match", func(t *testing.T) {
		body := `{
			"filters": [
				{"key":"email","value":"posthog","operator":"icontains","prop_type":"person"},
				{"key":"signup","value":"2024-01-01","operator":"is_date_after","prop_type":"person"}
			],
			"properties": {"email":"max@PostHog.com","signup":"2024-03-05T10:00:00Z"}
		}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var got MatchAllResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !got.Matched || got.Inconclusive || got.FailedIndex != nil {
			t.Errorf("unexpected response %+v", got)
		}
		if _, err := uuid.Parse(got.EvaluationID); err != nil {
			t.Errorf("evaluation_id %q is not a UUID: %v", got.EvaluationID, err)
		}
	})

	t.Run("empty filter list matches", func(t *testing.T) {
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", `{"filters":[],"properties":{}}`)
		var got MatchAllResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !got.Matched {
			t.Errorf("Expected matched=true for empty filter list")
		}
	})

	t.Run("missing filters field is rejected", func(t *testing.T) {
		for _, body := range []string{`{"properties":{"key":"v"}}`, `{"filters":null,"properties":{"key":"v"}}`} {
			rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("body %s: expected status 400, got %d: %s", body, rr.Code, rr.Body.String())
			}
			resp := decodeErrorResponse(t, rr)
			if resp.Code != ErrCodeMissingField {
				t.Errorf("body %s: expected code MISSING_FIELD, got %s", body, resp.Code)
			}
			if resp.Fields["filters"] == "" {
				t.Errorf("body %s: expected field error for filters, got %v", body, resp.Fields)
			}
		}
	})

	t.Run("missing property reports failing index", func(t *testing.T) {
		body := `{
			"filters": [
				{"key":"plan","value":"pro","prop_type":"person"},
				{"key":"country","value":"DE","prop_type":"person"}
			],
			"properties": {"plan":"pro"},
			"partial": true
		}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var got MatchAllResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.Matched || !got.Inconclusive {
			t.Errorf("Expected matched=false inconclusive=true, got %+v", got)
		}
		if got.FailedIndex == nil || *got.FailedIndex != 1 {
			t.Fatalf("Expected failed_index=1, got %v", got.FailedIndex)
		}
		if got.Error == nil || got.Error.Kind != properties.ErrorMissingProperty || got.Error.Key != "country" {
			t.Errorf("unexpected error %+v", got.Error)
		}
	})

	t.Run("short circuits before a broken filter", func(t *testing.T) {
		body := `{
			"filters": [
				{"key":"plan","value":"free","prop_type":"person"},
				{"key":"age","value":"x","operator":"gt","prop_type":"person"}
			],
			"properties": {"plan":"pro","age":3}
		}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("broken filter is a validation error", func(t *testing.T) {
		body := `{
			"filters": [
				{"key":"plan","value":"pro","prop_type":"person"},
				{"key":"age","value":"x","operator":"gt","prop_type":"person"}
			],
			"properties": {"plan":"pro","age":3}
		}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/match-all", body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", rr.Code)
		}
		resp := decodeErrorResponse(t, rr)
		if resp.Fields["filters[1]"] == "" {
			t.Errorf("Expected field error for filters[1], got %v", resp.Fields)
		}
	})
}

func TestHandleMatchAll_TooManyFilters(t *testing.T) {
	handler := newTestServer(t, Options{MaxFiltersPerRequest: 2})

	filter := map[string]any{"key": "a", "value": 1, "prop_type": "person"}
	payload, err := json.Marshal(map[string]any{
		"filters":    []any{filter, filter, filter},
		"properties": map[string]any{"a": 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/properties/match-all", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Code != ErrCodeTooManyFilters {
		t.Errorf("Expected code TOO_MANY_FILTERS, got %s", resp.Code)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	handler := newTestServer(t, Options{RateLimitPerIP: 1})
	body := `{"filter":{"key":"a","value":1,"prop_type":"person"},"properties":{"a":1}}`

	first := doJSON(t, handler, http.MethodPost, "/v1/properties/match", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}
	second := doJSON(t, handler, http.MethodPost, "/v1/properties/match", body)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if resp := decodeErrorResponse(t, second); resp.Code != ErrCodeRateLimited {
		t.Errorf("Expected code RATE_LIMITED, got %s", resp.Code)
	}

	// health is outside the limited group
	health := doJSON(t, handler, http.MethodGet, "/healthz", "")
	if health.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", health.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	handler := newTestServer(t, Options{})

	t.Run("valid filters", func(t *testing.T) {
		body := `{"filters":[{"key":"email","value":"^.*@example\\.com$","operator":"regex","prop_type":"person"}]}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/validate", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var got ValidateResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !got.Valid || len(got.Errors) != 0 {
			t.Errorf("expected valid, got %+v", got)
		}
	})

	t.Run("problems are reported per field", func(t *testing.T) {
		body := `{"filters":[
			{"key":"email","value":"(","operator":"regex","prop_type":"person"},
			{"key":"","value":"soon","operator":"is_date_after","prop_type":"person"}
		]}`
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/validate", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var got ValidateResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.Valid {
			t.Fatal("expected invalid")
		}
		for _, field := range []string{"filters[0].value", "filters[1].key", "filters[1].value"} {
			if got.Errors[field] == "" {
				t.Errorf("missing error for %s in %v", field, got.Errors)
			}
		}
	})

	t.Run("filters required", func(t *testing.T) {
		rr := doJSON(t, handler, http.MethodPost, "/v1/properties/validate", `{}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != ErrCodeMissingField {
			t.Errorf("Expected code MISSING_FIELD, got %s", resp.Code)
		}
	})
}
