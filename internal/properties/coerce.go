package properties

import (
	"strconv"
	"strings"
)

// StringRepresentation returns strings verbatim and the JSON text of anything
// else: numbers as their decimal text, booleans as true/false, null as "null".
func StringRepresentation(v Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// NumericRepresentation returns numbers directly and otherwise parses the
// string representation as a float. ok is false when v is not a number.
func NumericRepresentation(v Value) (float64, bool) {
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	s := StringRepresentation(v)
	// strconv accepts hex floats and digit separators; plain decimal only here.
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isBooleanLike reports whether v is a bool, a "true"/"false" string in any
// case, or an array whose elements are all boolean-like. Nested arrays are
// walked with an explicit stack.
func isBooleanLike(v Value) bool {
	stack := []Value{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.Kind() {
		case KindBool:
		case KindString:
			s := strings.ToLower(cur.text)
			if s != "true" && s != "false" {
				return false
			}
		case KindArray:
			stack = append(stack, cur.arr...)
		default:
			return false
		}
	}
	return true
}

// truthiness is the boolean reading of v. Arrays are true only if every
// element is true; an empty array is true.
func truthiness(v Value) bool {
	stack := []Value{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.Kind() {
		case KindBool:
			if !cur.b {
				return false
			}
		case KindString:
			if strings.ToLower(cur.text) != "true" {
				return false
			}
		case KindArray:
			stack = append(stack, cur.arr...)
		default:
			return false
		}
	}
	return true
}

// asciiLower folds A-Z only.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
