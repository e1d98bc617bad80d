// Package properties decides whether a single property filter holds for a
// subject's observed property values.
//
// MatchProperty is a pure function: it performs no I/O, keeps no state
// between calls and is safe for concurrent use.
package properties

import (
	"regexp"
	"strings"
)

// PatternCompiler turns a regex filter value into a compiled pattern. Callers
// evaluating the same filters at volume can supply a caching implementation.
type PatternCompiler interface {
	Compile(pattern string) (*regexp.Regexp, error)
}

// PatternCompilerFunc adapts a function to PatternCompiler.
type PatternCompilerFunc func(pattern string) (*regexp.Regexp, error)

func (f PatternCompilerFunc) Compile(pattern string) (*regexp.Regexp, error) {
	return f(pattern)
}

var compileEveryCall = PatternCompilerFunc(regexp.Compile)

// MatchProperty evaluates filter against values.
//
// With partial set, values is assumed to hold only some of the subject's
// properties: a filter whose key is absent fails with ErrMissingProperty,
// whatever its operator. Otherwise an absent key is decided by the operator.
func MatchProperty(filter PropertyFilter, values Properties, partial bool) (bool, error) {
	return MatchPropertyWith(filter, values, partial, nil)
}

// MatchPropertyWith is MatchProperty with a caller-supplied pattern compiler.
// A nil compiler compiles on every call.
func MatchPropertyWith(filter PropertyFilter, values Properties, partial bool, compiler PatternCompiler) (bool, error) {
	observed, present := values[filter.Key]
	if partial && !present {
		return false, missingProperty(filter.Key)
	}

	op := EffectiveOperator(filter)
	eval, ok := operatorTable[op]
	if !ok {
		return false, validationError("unknown operator " + string(op))
	}
	if compiler == nil {
		compiler = compileEveryCall
	}

	return eval(matchInput{
		op:       op,
		value:    filter.Value,
		observed: observed,
		present:  present,
		partial:  partial,
		compiler: compiler,
	})
}

type matchInput struct {
	op       Operator
	value    Value
	observed Value
	present  bool
	partial  bool
	compiler PatternCompiler
}

type operatorFunc func(in matchInput) (bool, error)

var operatorTable map[Operator]operatorFunc

func init() {
	operatorTable = map[Operator]operatorFunc{
		OpExact:        matchExact,
		OpIsNot:        negatePresent(matchExact),
		OpIsSet:        matchIsSet,
		OpIsNotSet:     matchIsNotSet,
		OpIcontains:    matchIcontains,
		OpNotIcontains: negatePresent(matchIcontains),
		OpRegex:        matchRegex(true),
		OpNotRegex:     matchRegex(false),
		OpGt:           matchNumeric(func(a, b float64) bool { return a > b }),
		OpGte:          matchNumeric(func(a, b float64) bool { return a >= b }),
		OpLt:           matchNumeric(func(a, b float64) bool { return a < b }),
		OpLte:          matchNumeric(func(a, b float64) bool { return a <= b }),
		OpIsDateExact:  matchDate(func(c int) bool { return c == 0 }),
		OpIsDateBefore: matchDate(func(c int) bool { return c < 0 }),
		OpIsDateAfter:  matchDate(func(c int) bool { return c > 0 }),
		OpIn:           rejectCohortOperator,
		OpNotIn:        rejectCohortOperator,
	}
}

// negatePresent flips a result when the key is present. An absent key makes
// the negated operator true.
func negatePresent(eval operatorFunc) operatorFunc {
	return func(in matchInput) (bool, error) {
		if !in.present {
			return true, nil
		}
		matched, err := eval(in)
		if err != nil {
			return false, err
		}
		return !matched, nil
	}
}

func matchExact(in matchInput) (bool, error) {
	if !in.present {
		return false, nil
	}
	return computeExactMatch(in.value, in.observed), nil
}

// computeExactMatch compares boolean-like filter values by truthiness, array
// filter values by case-insensitive membership, and anything else by
// case-insensitive string equality.
func computeExactMatch(value, observed Value) bool {
	if isBooleanLike(value) {
		return truthiness(value) == truthiness(observed)
	}

	want := strings.ToLower(StringRepresentation(observed))
	if elems, ok := value.Elements(); ok {
		for _, elem := range elems {
			if strings.ToLower(StringRepresentation(elem)) == want {
				return true
			}
		}
		return false
	}
	return strings.ToLower(StringRepresentation(value)) == want
}

func matchIsSet(in matchInput) (bool, error) {
	return in.present, nil
}

func matchIsNotSet(in matchInput) (bool, error) {
	if in.partial {
		if in.present {
			return false, nil
		}
		// Unreachable while MatchPropertyWith rejects absent keys in partial
		// mode up front.
		return false, inconclusiveOperatorMatch()
	}
	return !in.present, nil
}

func matchIcontains(in matchInput) (bool, error) {
	if !in.present {
		return false, nil
	}
	haystack := asciiLower(StringRepresentation(in.observed))
	needle := asciiLower(StringRepresentation(in.value))
	return strings.Contains(haystack, needle), nil
}

// matchRegex searches for the pattern anywhere in the observed value. An
// invalid pattern is false for both polarities.
func matchRegex(want bool) operatorFunc {
	return func(in matchInput) (bool, error) {
		if !in.present {
			return !want, nil
		}
		rx, err := in.compiler.Compile(StringRepresentation(in.value))
		if err != nil || rx == nil {
			return false, nil
		}
		found := rx.MatchString(StringRepresentation(in.observed))
		return found == want, nil
	}
}

func matchNumeric(cmp func(observed, value float64) bool) operatorFunc {
	return func(in matchInput) (bool, error) {
		if !in.present {
			return false, nil
		}
		observed, ok := NumericRepresentation(in.observed)
		if !ok {
			return false, validationError("value is not a number")
		}
		value, ok := NumericRepresentation(in.value)
		if !ok {
			return false, validationError("override value is not a number")
		}
		return cmp(observed, value), nil
	}
}

// matchDate compares the observed date against the filter's date. The filter
// value must be a parsable date string; anything else is simply false.
func matchDate(accept func(cmp int) bool) operatorFunc {
	return func(in matchInput) (bool, error) {
		if !in.present {
			return false, nil
		}
		observed, ok := dateFromValue(in.observed)
		if !ok {
			return false, nil
		}
		s, ok := in.value.AsString()
		if !ok {
			return false, nil
		}
		value, ok := ParseDate(s)
		if !ok {
			return false, nil
		}
		return accept(observed.Compare(value)), nil
	}
}

// In and NotIn belong to cohort filters, which are expanded into plain
// property filters before matching.
func rejectCohortOperator(matchInput) (bool, error) {
	return false, validationError("In/NotIn operators should be handled by cohort matching")
}
