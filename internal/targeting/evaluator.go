// Package targeting combines property filters into a targeting decision.
// It sits between a flag's rule set and the properties engine: filters of one
// rule are ANDed, and compiled regex patterns can be shared across calls.
package targeting

import (
	"errors"
	"fmt"

	"github.com/TimurManjosov/flagprops/internal/properties"
)

// Outcome labels used for metrics and logs.
const (
	OutcomeTrue            = "true"
	OutcomeFalse           = "false"
	OutcomeMissingProperty = "missing_property"
	OutcomeInconclusive    = "inconclusive"
	OutcomeValidationError = "validation_error"
	OutcomeError           = "error"
)

// Observer is notified after every single-filter evaluation.
type Observer func(op properties.Operator, outcome string)

// FilterError reports which filter of a list failed to evaluate.
type FilterError struct {
	Index int
	Key   string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter[%d] %q: %v", e.Index, e.Key, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Matcher evaluates property filters. The zero Matcher compiles regex
// patterns on every call and observes nothing.
type Matcher struct {
	compiler properties.PatternCompiler
	observer Observer
}

// NewMatcher returns a Matcher using compiler for regex filters. compiler may
// be nil.
func NewMatcher(compiler properties.PatternCompiler, observer Observer) *Matcher {
	return &Matcher{compiler: compiler, observer: observer}
}

// Match evaluates a single filter.
func (m *Matcher) Match(filter properties.PropertyFilter, values properties.Properties, partial bool) (bool, error) {
	matched, err := properties.MatchPropertyWith(filter, values, partial, m.compiler)
	if m.observer != nil {
		m.observer(properties.EffectiveOperator(filter), Outcome(matched, err))
	}
	return matched, err
}

// MatchAll reports whether every filter matches. Evaluation stops at the first
// filter that does not match or fails; failures come back as *FilterError.
// An empty filter list matches.
func (m *Matcher) MatchAll(filters []properties.PropertyFilter, values properties.Properties, partial bool) (bool, error) {
	for i, filter := range filters {
		matched, err := m.Match(filter, values, partial)
		if err != nil {
			return false, &FilterError{Index: i, Key: filter.Key, Err: err}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// Outcome classifies a match result.
func Outcome(matched bool, err error) string {
	switch {
	case err == nil && matched:
		return OutcomeTrue
	case err == nil:
		return OutcomeFalse
	case errors.Is(err, properties.ErrMissingProperty):
		return OutcomeMissingProperty
	case errors.Is(err, properties.ErrInconclusiveOperatorMatch):
		return OutcomeInconclusive
	case errors.Is(err, properties.ErrValidation):
		return OutcomeValidationError
	default:
		return OutcomeError
	}
}
