package api

import "github.com/TimurManjosov/flagprops/internal/properties"

// MatchRequest is the request payload for POST /v1/properties/match.
type MatchRequest struct {
	Filter     *properties.PropertyFilter `json:"filter"`
	Properties properties.Properties      `json:"properties"`
	// Partial defaults to the server's configured evaluation mode.
	Partial *bool `json:"partial,omitempty"`
}

// MatchAllRequest is the request payload for POST /v1/properties/match-all.
type MatchAllRequest struct {
	Filters    []properties.PropertyFilter `json:"filters"`
	Properties properties.Properties       `json:"properties"`
	Partial    *bool                       `json:"partial,omitempty"`
}

// MatchErrorDTO describes why a filter could not be decided.
type MatchErrorDTO struct {
	Kind    properties.ErrorKind `json:"kind"`
	Message string               `json:"message"`
	Key     string               `json:"key,omitempty"`
}

// MatchResponse is the response payload for POST /v1/properties/match.
type MatchResponse struct {
	Matched      bool           `json:"matched"`
	Inconclusive bool           `json:"inconclusive"`
	Error        *MatchErrorDTO `json:"error,omitempty"`
}

// MatchAllResponse is the response payload for POST /v1/properties/match-all.
type MatchAllResponse struct {
	EvaluationID string         `json:"evaluation_id"`
	Matched      bool           `json:"matched"`
	Inconclusive bool           `json:"inconclusive"`
	FailedIndex  *int           `json:"failed_index,omitempty"`
	Error        *MatchErrorDTO `json:"error,omitempty"`
}

// OperatorsResponse is the response payload for GET /v1/properties/operators.
type OperatorsResponse struct {
	Operators []properties.Operator `json:"operators"`
}

// ValidateRequest is the request payload for POST /v1/properties/validate.
type ValidateRequest struct {
	Filters []properties.PropertyFilter `json:"filters"`
}

// ValidateResponse lists problems found in the filters, keyed by field path.
type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}
