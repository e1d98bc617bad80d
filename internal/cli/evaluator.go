package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/TimurManjosov/flagprops/internal/api"
	"github.com/TimurManjosov/flagprops/internal/client"
	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
)

// Result is the outcome of evaluating one filter or a filter list.
type Result struct {
	Matched      bool   `json:"matched" yaml:"matched"`
	Inconclusive bool   `json:"inconclusive" yaml:"inconclusive"`
	Outcome      string `json:"outcome" yaml:"outcome"`
	FailedIndex  *int   `json:"failed_index,omitempty" yaml:"failed_index,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Evaluator decides a filter list against a property set. A single filter is
// a list of one. Filter errors are part of the Result; the returned error is
// reserved for failing to evaluate at all.
type Evaluator interface {
	Evaluate(ctx context.Context, filters []properties.PropertyFilter, props properties.Properties, partial bool) (Result, error)
}

// LocalEvaluator runs the engine in-process.
type LocalEvaluator struct {
	Matcher *targeting.Matcher
}

func (e LocalEvaluator) Evaluate(_ context.Context, filters []properties.PropertyFilter, props properties.Properties, partial bool) (Result, error) {
	matcher := e.Matcher
	if matcher == nil {
		matcher = targeting.NewMatcher(nil, nil)
	}

	var (
		matched bool
		err     error
	)
	if len(filters) == 1 {
		matched, err = matcher.Match(filters[0], props, partial)
	} else {
		matched, err = matcher.MatchAll(filters, props, partial)
	}

	res := Result{
		Matched:      matched,
		Inconclusive: properties.Inconclusive(err),
		Outcome:      targeting.Outcome(matched, err),
	}
	if err != nil {
		res.Error = err.Error()
		var filterErr *targeting.FilterError
		if errors.As(err, &filterErr) {
			idx := filterErr.Index
			res.FailedIndex = &idx
		}
	}
	return res, nil
}

// RemoteEvaluator asks a match server.
type RemoteEvaluator struct {
	Client *client.Client
}

func (e RemoteEvaluator) Evaluate(ctx context.Context, filters []properties.PropertyFilter, props properties.Properties, partial bool) (Result, error) {
	if len(filters) == 1 {
		resp, err := e.Client.Match(ctx, filters[0], props, &partial)
		if err != nil {
			return rejectedResult(err)
		}
		return remoteResult(resp.Matched, resp.Error, nil), nil
	}

	if filters == nil {
		filters = []properties.PropertyFilter{}
	}
	resp, err := e.Client.MatchAll(ctx, filters, props, &partial)
	if err != nil {
		return rejectedResult(err)
	}
	return remoteResult(resp.Matched, resp.Error, resp.FailedIndex), nil
}

func remoteResult(matched bool, matchErr *api.MatchErrorDTO, failedIndex *int) Result {
	res := Result{Matched: matched, Outcome: targeting.Outcome(matched, nil)}
	if matchErr == nil {
		return res
	}
	res.Inconclusive = true
	res.FailedIndex = failedIndex
	res.Error = matchErr.Message
	switch matchErr.Kind {
	case properties.ErrorMissingProperty:
		res.Outcome = targeting.OutcomeMissingProperty
	case properties.ErrorInconclusiveOperatorMatch:
		res.Outcome = targeting.OutcomeInconclusive
	default:
		res.Outcome = targeting.OutcomeError
	}
	return res
}

// rejectedResult turns a 422 into a validation_error outcome. Anything else
// is a transport or server failure.
func rejectedResult(err error) (Result, error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return Result{
			Outcome: targeting.OutcomeValidationError,
			Error:   apiErr.Response.Message,
		}, nil
	}
	return Result{}, err
}
