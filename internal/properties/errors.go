package properties

import (
	"errors"
	"fmt"
)

// Sentinel errors. MatchProperty only returns *MatchError values, which
// unwrap to one of the first four.
var (
	ErrValidation                = errors.New("validation error")
	ErrMissingProperty           = errors.New("missing property")
	ErrInconclusiveOperatorMatch = errors.New("inconclusive operator match")
	ErrInvalidRegexPattern       = errors.New("invalid regex pattern")

	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidValue    = errors.New("invalid value")
)

// ErrorKind names a MatchError variant on the wire.
type ErrorKind string

const (
	ErrorValidation                ErrorKind = "validation_error"
	ErrorMissingProperty           ErrorKind = "missing_property"
	ErrorInconclusiveOperatorMatch ErrorKind = "inconclusive_operator_match"
	ErrorInvalidRegexPattern       ErrorKind = "invalid_regex_pattern"
)

// MatchError is the failure side of MatchProperty.
type MatchError struct {
	Kind ErrorKind
	// Key is set for ErrorMissingProperty.
	Key    string
	Reason string
}

func (e *MatchError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *MatchError) Unwrap() error {
	switch e.Kind {
	case ErrorValidation:
		return ErrValidation
	case ErrorMissingProperty:
		return ErrMissingProperty
	case ErrorInconclusiveOperatorMatch:
		return ErrInconclusiveOperatorMatch
	case ErrorInvalidRegexPattern:
		return ErrInvalidRegexPattern
	default:
		return nil
	}
}

// Inconclusive reports whether err means "not enough data to decide" rather
// than a broken filter.
func Inconclusive(err error) bool {
	return errors.Is(err, ErrMissingProperty) || errors.Is(err, ErrInconclusiveOperatorMatch)
}

func validationError(reason string) *MatchError {
	return &MatchError{Kind: ErrorValidation, Reason: reason}
}

func missingProperty(key string) *MatchError {
	return &MatchError{
		Kind:   ErrorMissingProperty,
		Key:    key,
		Reason: "can't match properties without a value. Missing property: " + key,
	}
}

func inconclusiveOperatorMatch() *MatchError {
	return &MatchError{Kind: ErrorInconclusiveOperatorMatch}
}
