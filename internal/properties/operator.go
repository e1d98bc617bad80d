package properties

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Operator is a property filter operator, identified by its wire name.
// The empty Operator means "absent" and evaluates as OpExact.
type Operator string

const (
	OpExact        Operator = "exact"
	OpIsNot        Operator = "is_not"
	OpIsSet        Operator = "is_set"
	OpIsNotSet     Operator = "is_not_set"
	OpIcontains    Operator = "icontains"
	OpNotIcontains Operator = "not_icontains"
	OpRegex        Operator = "regex"
	OpNotRegex     Operator = "not_regex"
	OpGt           Operator = "gt"
	OpGte          Operator = "gte"
	OpLt           Operator = "lt"
	OpLte          Operator = "lte"
	OpIsDateExact  Operator = "is_date_exact"
	OpIsDateBefore Operator = "is_date_before"
	OpIsDateAfter  Operator = "is_date_after"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// Operators lists every known operator in declaration order.
var Operators = []Operator{
	OpExact, OpIsNot, OpIsSet, OpIsNotSet,
	OpIcontains, OpNotIcontains, OpRegex, OpNotRegex,
	OpGt, OpGte, OpLt, OpLte,
	OpIsDateExact, OpIsDateBefore, OpIsDateAfter,
	OpIn, OpNotIn,
}

// Valid reports whether op is a known operator. The absent operator is valid.
func (op Operator) Valid() bool {
	if op == "" {
		return true
	}
	_, ok := operatorTable[op]
	return ok
}

// ParseOperator maps a wire name to an Operator. "" yields the absent operator.
func ParseOperator(name string) (Operator, error) {
	op := Operator(name)
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, name)
	}
	return op, nil
}

// UnmarshalJSON implements json.Unmarshaler; null means absent.
func (op *Operator) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*op = ""
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperator, err)
	}
	parsed, err := ParseOperator(name)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler; null means absent.
func (op *Operator) UnmarshalYAML(node *yaml.Node) error {
	if node.ShortTag() == "!!null" {
		*op = ""
		return nil
	}
	parsed, err := ParseOperator(node.Value)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
