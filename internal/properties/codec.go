package properties

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxNesting bounds how deep FromAny and the YAML decoder descend into arrays
// and objects. encoding/json enforces a similar limit of its own.
const maxNesting = 10000

// FromAny converts a Go value, as produced by encoding/json, yaml.v3 or a
// caller, into a Value.
func FromAny(v any) (Value, error) {
	return fromAny(v, 0)
}

func fromAny(v any, depth int) (Value, error) {
	if depth > maxNesting {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidValue, maxNesting)
	}

	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return numberFromLiteral(string(x))
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return numberFromUint(uint64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return numberFromUint(x), nil
	case []Value:
		return Array(x...), nil
	case []string:
		elems := make([]Value, 0, len(x))
		for _, s := range x {
			elems = append(elems, String(s))
		}
		return Array(elems...), nil
	case []any:
		elems := make([]Value, 0, len(x))
		for i, item := range x {
			elem, err := fromAny(item, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, elem)
		}
		return Array(elems...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for key, item := range x {
			field, err := fromAny(item, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			fields[key] = field
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, v)
	}
}

func numberFromUint(u uint64) Value {
	return Value{kind: KindNumber, num: float64(u), text: strconv.FormatUint(u, 10)}
}

// numberFromLiteral keeps the literal text of plain decimals. Exponent
// literals are rewritten as floats ("1e2" reads "100.0"), and literals beyond
// float64 range are rejected.
func numberFromLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: bad number %q", ErrInvalidValue, lit)
	}
	if strings.ContainsAny(lit, "eE") {
		return Value{kind: KindNumber, num: f, text: floatText(f)}, nil
	}
	return Value{kind: KindNumber, num: f, text: lit}, nil
}

// floatText renders a finite float so it still reads as one: integral values
// get a ".0" suffix and exponents drop the sign and zero padding of "e+07".
func floatText(f float64) string {
	s := formatFloat(f)
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	n, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}
	return mantissa + "e" + strconv.Itoa(n)
}

// DecodeProperties decodes a JSON object into Properties.
func DecodeProperties(data []byte) (Properties, error) {
	var props Properties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	if props == nil {
		props = Properties{}
	}
	return props, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalJSON implements json.Marshaler. Object keys are sorted; HTML
// characters are not escaped.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			// Not representable in JSON.
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(v.text)
	case KindString:
		return appendQuoted(buf, v.text)
	case KindArray:
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := elem.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for key := range v.obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendQuoted(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.obj[key].appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidValue, v.kind)
	}
	return nil
}

func appendQuoted(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline.
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := fromYAMLNode(node, 0)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromYAMLNode(node *yaml.Node, depth int) (Value, error) {
	if depth > maxNesting {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidValue, maxNesting)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(node.Content[0], depth+1)
	case yaml.AliasNode:
		if node.Alias == nil {
			return Null(), nil
		}
		return fromYAMLNode(node.Alias, depth+1)
	case yaml.SequenceNode:
		elems := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			elem, err := fromYAMLNode(child, depth+1)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return Array(elems...), nil
	case yaml.MappingNode:
		fields := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			field, err := fromYAMLNode(node.Content[i+1], depth+1)
			if err != nil {
				return Value{}, err
			}
			fields[node.Content[i].Value] = field
		}
		return Object(fields), nil
	case yaml.ScalarNode:
		return fromYAMLScalar(node)
	default:
		return Value{}, fmt.Errorf("%w: unsupported yaml node kind %d", ErrInvalidValue, node.Kind)
	}
}

func fromYAMLScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!str", "!!timestamp":
		// Unquoted dates stay strings; the date operators parse them.
		return String(node.Value), nil
	case "!!int", "!!float":
		if json.Valid([]byte(node.Value)) {
			return numberFromLiteral(node.Value)
		}
		// 0x1F, 1_000, .inf and friends.
		var raw any
		if err := node.Decode(&raw); err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return FromAny(raw)
	default:
		var raw any
		if err := node.Decode(&raw); err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return FromAny(raw)
	}
}

// Interface converts v back to plain Go values: nil, bool, int64 or float64,
// string, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := strconv.ParseInt(v.text, 10, 64); err == nil {
			return i
		}
		return v.num
	case KindString:
		return v.text
	case KindArray:
		out := make([]any, 0, len(v.arr))
		for _, elem := range v.arr {
			out = append(out, elem.Interface())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for key, field := range v.obj {
			out[key] = field.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
