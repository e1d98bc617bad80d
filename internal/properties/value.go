package properties

import (
	"math"
	"strconv"
)

// Kind identifies which variant of Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON-like dynamic value: a filter comparand or an observed
// property value. The zero Value is Null.
//
// Numbers keep the literal text they were decoded from so that their string
// form matches what the caller sent.
type Value struct {
	kind Kind
	b    bool
	num  float64
	text string
	arr  []Value
	obj  map[string]Value
}

// Properties maps a property key to the value observed for a subject.
type Properties map[string]Value

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, text: s} }

// Number builds a numeric Value from a float, rendered the way encoding/json
// renders float64.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, text: formatFloat(f)}
}

// Int builds a numeric Value from an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: float64(i), text: strconv.FormatInt(i, 10)}
}

// Array builds an array Value. The slice is not copied.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// Object builds an object Value. The map is not copied.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

func (v Value) Elements() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

func (v Value) Fields() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// formatFloat mirrors encoding/json: plain decimal in [1e-6, 1e21), exponent
// form outside it.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, 64)
}
