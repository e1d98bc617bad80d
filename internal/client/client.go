package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TimurManjosov/flagprops/internal/api"
	"github.com/TimurManjosov/flagprops/internal/properties"
)

// Client is an HTTP client for the property match API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Response   api.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Code != "" {
		return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Response.Code, e.Response.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Response.Message)
}

// Match evaluates a single filter remotely. A nil partial leaves the choice
// to the server.
func (c *Client) Match(ctx context.Context, filter properties.PropertyFilter, props properties.Properties, partial *bool) (*api.MatchResponse, error) {
	var result api.MatchResponse
	err := c.post(ctx, "/v1/properties/match", api.MatchRequest{
		Filter:     &filter,
		Properties: props,
		Partial:    partial,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MatchAll evaluates a filter list remotely.
func (c *Client) MatchAll(ctx context.Context, filters []properties.PropertyFilter, props properties.Properties, partial *bool) (*api.MatchAllResponse, error) {
	var result api.MatchAllResponse
	err := c.post(ctx, "/v1/properties/match-all", api.MatchAllRequest{
		Filters:    filters,
		Properties: props,
		Partial:    partial,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(bodyBytes, &apiErr.Response) != nil || apiErr.Response.Message == "" {
			apiErr.Response.Message = string(bodyBytes)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
