// Package validation checks property filters before they are stored or
// evaluated. It reports configurations the matcher would reject or silently
// treat as a non-match, so they can be fixed up front.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TimurManjosov/flagprops/internal/properties"
)

const (
	// MaxKeyLength is the maximum length for property keys
	MaxKeyLength = 400
	// MaxPatternLength is the maximum length for regex filter values
	MaxPatternLength = 1000
)

// knownPropTypes are the property namespaces a filter may target.
var knownPropTypes = map[string]struct{}{
	"person": {}, "group": {}, "cohort": {}, "event": {}, "element": {},
	"session": {}, "feature": {}, "hogql": {}, "data_warehouse": {},
}

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one, prefixing its
// field names.
func (v *ValidationResult) Merge(prefix string, other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(prefix+field, message)
	}
}

// ValidateFilters validates every filter of a list. Field names are
// prefixed with "filters[i].".
func ValidateFilters(filters []properties.PropertyFilter) *ValidationResult {
	result := NewValidationResult()
	for i, f := range filters {
		result.Merge(fmt.Sprintf("filters[%d].", i), ValidateFilter(f))
	}
	return result
}

// ValidateFilter validates a single filter's key, prop_type and the shape of
// its value for the operator.
func ValidateFilter(f properties.PropertyFilter) *ValidationResult {
	result := NewValidationResult()

	if msg := validateKey(f.Key); msg != "" {
		result.AddError("key", msg)
	}
	if f.PropType != "" {
		if _, ok := knownPropTypes[f.PropType]; !ok {
			result.AddError("prop_type", fmt.Sprintf("Unknown prop_type '%s'", f.PropType))
		}
	}
	if msg := validateValue(properties.EffectiveOperator(f), f.Value); msg != "" {
		result.AddError("value", msg)
	}

	return result
}

func validateKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return "Key is required"
	}
	if !utf8.ValidString(key) {
		return "Key must be valid UTF-8"
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return fmt.Sprintf("Key must not exceed %d characters", MaxKeyLength)
	}
	return ""
}

// validateValue mirrors how the matcher reads the filter value for op.
func validateValue(op properties.Operator, v properties.Value) string {
	switch op {
	case properties.OpIsSet, properties.OpIsNotSet:
		return ""

	case properties.OpRegex, properties.OpNotRegex:
		pattern := properties.StringRepresentation(v)
		if utf8.RuneCountInString(pattern) > MaxPatternLength {
			return fmt.Sprintf("Pattern must not exceed %d characters", MaxPatternLength)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return "Invalid regex pattern, the filter would never match: " + err.Error()
		}

	case properties.OpGt, properties.OpGte, properties.OpLt, properties.OpLte:
		if _, ok := properties.NumericRepresentation(v); !ok {
			return "Value must be a number or a numeric string"
		}

	case properties.OpIsDateExact, properties.OpIsDateBefore, properties.OpIsDateAfter:
		s, ok := v.AsString()
		if !ok {
			return "Value must be a date string, the filter would never match"
		}
		if _, ok := properties.ParseDate(s); !ok {
			return fmt.Sprintf("Unparsable date '%s', the filter would never match", s)
		}

	case properties.OpIn, properties.OpNotIn:
		return "In/NotIn operators should be handled by cohort matching"

	case properties.OpExact, properties.OpIsNot:
		// An empty list is boolean-like, so it compares by truthiness.
		if elems, ok := v.Elements(); ok && len(elems) == 0 {
			return "Empty value list is compared as the boolean true, not as a list"
		}
		if v.Kind() == properties.KindObject {
			return "Value must be a scalar or a list of scalars"
		}
	}
	return ""
}
