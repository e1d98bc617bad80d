package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
	"github.com/TimurManjosov/flagprops/internal/validation"
)

var tracer = otel.Tracer("github.com/TimurManjosov/flagprops/internal/api")

func (s *Server) handleOperators(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OperatorsResponse{Operators: properties.Operators})
}

// handleMatch evaluates a single filter.
//
// A missing property or an inconclusive operator is a normal answer (200 with
// inconclusive=true); a filter that cannot be evaluated is a 422.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Filter == nil {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "Missing required field",
			map[string]string{"filter": "filter is required"})
		return
	}

	filter := *req.Filter
	partial := s.partial(req.Partial)
	op := properties.EffectiveOperator(filter)

	_, span := tracer.Start(r.Context(), "properties.match", trace.WithAttributes(
		attribute.String("property.key", filter.Key),
		attribute.String("property.operator", string(op)),
		attribute.Bool("property.partial", partial),
	))
	defer span.End()

	matched, err := s.matcher.Match(filter, req.Properties, partial)
	span.SetAttributes(attribute.String("property.outcome", targeting.Outcome(matched, err)))

	if err != nil && !properties.Inconclusive(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).
			Str("key", filter.Key).
			Str("operator", string(op)).
			Msg("property filter rejected")
		ValidationError(w, r, err.Error(), map[string]string{"filter": err.Error()})
		return
	}

	s.logger.Debug().
		Str("key", filter.Key).
		Str("operator", string(op)).
		Bool("partial", partial).
		Str("outcome", targeting.Outcome(matched, err)).
		Msg("property filter evaluated")

	writeJSON(w, http.StatusOK, MatchResponse{
		Matched:      matched,
		Inconclusive: err != nil,
		Error:        matchErrorDTO(err),
	})
}

// handleMatchAll evaluates a filter list as a logical AND.
func (s *Server) handleMatchAll(w http.ResponseWriter, r *http.Request) {
	var req MatchAllRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	// An absent list is a client error; an explicit [] is an empty AND.
	if req.Filters == nil {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "Missing required field",
			map[string]string{"filters": "filters is required"})
		return
	}
	if len(req.Filters) > s.opts.MaxFiltersPerRequest {
		BadRequestErrorWithFields(w, r, ErrCodeTooManyFilters, "Too many filters",
			map[string]string{"filters": "at most " + strconv.Itoa(s.opts.MaxFiltersPerRequest) + " filters are allowed"})
		return
	}

	evaluationID := uuid.NewString()
	partial := s.partial(req.Partial)

	_, span := tracer.Start(r.Context(), "properties.match_all", trace.WithAttributes(
		attribute.String("evaluation.id", evaluationID),
		attribute.Int("property.filters", len(req.Filters)),
		attribute.Bool("property.partial", partial),
	))
	defer span.End()

	matched, err := s.matcher.MatchAll(req.Filters, req.Properties, partial)
	resp := MatchAllResponse{EvaluationID: evaluationID, Matched: matched}

	if err != nil {
		var filterErr *targeting.FilterError
		if errors.As(err, &filterErr) {
			idx := filterErr.Index
			resp.FailedIndex = &idx
			span.SetAttributes(attribute.Int("property.failed_index", idx))
		}
		if !properties.Inconclusive(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn().Err(err).
				Str("evaluation_id", evaluationID).
				Msg("property filter list rejected")
			fields := map[string]string{"filters": err.Error()}
			if filterErr != nil {
				fields = map[string]string{"filters[" + strconv.Itoa(filterErr.Index) + "]": filterErr.Err.Error()}
			}
			ValidationError(w, r, err.Error(), fields)
			return
		}
		resp.Inconclusive = true
		resp.Error = matchErrorDTO(err)
	}

	s.logger.Debug().
		Str("evaluation_id", evaluationID).
		Int("filters", len(req.Filters)).
		Bool("matched", matched).
		Bool("inconclusive", resp.Inconclusive).
		Msg("property filter list evaluated")

	writeJSON(w, http.StatusOK, resp)
}

// handleValidate lints filters without evaluating them.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Filters == nil {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "Missing required field",
			map[string]string{"filters": "filters is required"})
		return
	}
	if len(req.Filters) > s.opts.MaxFiltersPerRequest {
		BadRequestErrorWithFields(w, r, ErrCodeTooManyFilters, "Too many filters",
			map[string]string{"filters": "at most " + strconv.Itoa(s.opts.MaxFiltersPerRequest) + " filters are allowed"})
		return
	}

	result := validation.ValidateFilters(req.Filters)
	resp := ValidateResponse{Valid: result.Valid}
	if !result.Valid {
		resp.Errors = result.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

func matchErrorDTO(err error) *MatchErrorDTO {
	if err == nil {
		return nil
	}
	var matchErr *properties.MatchError
	if !errors.As(err, &matchErr) {
		return &MatchErrorDTO{Message: err.Error()}
	}
	return &MatchErrorDTO{
		Kind:    matchErr.Kind,
		Message: matchErr.Error(),
		Key:     matchErr.Key,
	}
}
