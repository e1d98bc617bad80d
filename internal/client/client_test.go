package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/flagprops/internal/api"
	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/testutil"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(testutil.NewHTTPServer(t, api.Options{}).URL)
}

func TestClient_Match(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	filter := properties.PropertyFilter{
		Key:      "email",
		Value:    properties.String("posthog.com"),
		Operator: properties.OpIcontains,
		PropType: "person",
	}
	props := properties.Properties{"email": properties.String("max@PostHog.com")}

	resp, err := c.Match(ctx, filter, props, nil)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if !resp.Matched || resp.Inconclusive {
		t.Errorf("unexpected response %+v", resp)
	}

	partial := true
	resp, err = c.Match(ctx, filter, properties.Properties{}, &partial)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if resp.Matched || !resp.Inconclusive || resp.Error == nil || resp.Error.Kind != properties.ErrorMissingProperty {
		t.Errorf("expected inconclusive missing property, got %+v", resp)
	}
}

func TestClient_MatchAll(t *testing.T) {
	c := newTestClient(t)

	filters := []properties.PropertyFilter{
		{Key: "age", Value: properties.Int(18), Operator: properties.OpGte, PropType: "person"},
		{Key: "plan", Value: properties.Array(properties.String("pro"), properties.String("team")), PropType: "person"},
	}
	props := properties.Properties{"age": properties.Int(30), "plan": properties.String("Team")}

	resp, err := c.MatchAll(context.Background(), filters, props, nil)
	if err != nil {
		t.Fatalf("MatchAll() error: %v", err)
	}
	if !resp.Matched {
		t.Errorf("expected match, got %+v", resp)
	}
	if resp.EvaluationID == "" {
		t.Error("expected evaluation_id")
	}
}

func TestClient_ValidationErrorIsAPIError(t *testing.T) {
	c := newTestClient(t)

	filter := testutil.MustFilter(t, `{"key":"age","value":1,"operator":"gt","prop_type":"person"}`)
	_, err := c.Match(context.Background(), filter, testutil.MustProps(t, `{"age":"old"}`), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Response.Code != api.ErrCodeValidation {
		t.Errorf("Code = %s, want %s", apiErr.Response.Code, api.ErrCodeValidation)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).MatchAll(context.Background(), nil, nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
	}
	if apiErr.Response.Message != "upstream down\n" {
		t.Errorf("Message = %q", apiErr.Response.Message)
	}
}
