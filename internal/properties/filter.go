package properties

// PropertyFilter is a single targeting condition.
//
// PropType, GroupTypeIndex and Negation are carried for the caller and play
// no part in matching.
type PropertyFilter struct {
	Key            string   `json:"key" yaml:"key"`
	Value          Value    `json:"value" yaml:"value"`
	Operator       Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	PropType       string   `json:"prop_type" yaml:"prop_type"`
	GroupTypeIndex *int32   `json:"group_type_index,omitempty" yaml:"group_type_index,omitempty"`
	Negation       *bool    `json:"negation,omitempty" yaml:"negation,omitempty"`
}

// EffectiveOperator resolves an absent operator to OpExact.
func EffectiveOperator(f PropertyFilter) Operator {
	if f.Operator == "" {
		return OpExact
	}
	return f.Operator
}
