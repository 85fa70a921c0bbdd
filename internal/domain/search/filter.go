package search

import (
	"encoding/json"
	"fmt"
)

// Operator is a comparison applied to one document field.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "le"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "ge"
	OpStartsWith   Operator = "startsWith"
	OpContainsText Operator = "containsText"
	OpIn           Operator = "in"
	OpNull         Operator = "null"
	OpNotNull      Operator = "notnull"
)

func (o Operator) needsValue() bool {
	return o != OpNull && o != OpNotNull
}

func (o Operator) valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan,
		OpGreaterEqual, OpStartsWith, OpContainsText, OpIn, OpNull, OpNotNull:
		return true
	}
	return false
}

// Filter is a node of the search filter tree: either a group ("and"/"or"
// over children) or a leaf comparing one field. The JSON form round-trips:
// leaves serialize as {"f":…,"o":…,"v":…} (no "v" for null/notnull), groups
// as {"and":[…]} or {"or":[…]}.
type Filter struct {
	and   []Filter
	or    []Filter
	field string
	op    Operator
	value interface{}
}

// And groups children conjunctively.
func And(children ...Filter) Filter {
	return Filter{and: children}
}

// Or groups children disjunctively.
func Or(children ...Filter) Filter {
	return Filter{or: children}
}

// FieldOpValue builds a leaf comparing field against value.
func FieldOpValue(field string, op Operator, value interface{}) Filter {
	return Filter{field: field, op: op, value: value}
}

// FieldIsNull matches documents where the field is absent or null.
func FieldIsNull(field string) Filter {
	return Filter{field: field, op: OpNull}
}

// FieldNotNull matches documents where the field is present and non-null.
func FieldNotNull(field string) Filter {
	return Filter{field: field, op: OpNotNull}
}

// IsGroup reports whether the node is an "and"/"or" group.
func (f Filter) IsGroup() bool {
	return f.and != nil || f.or != nil
}

// IsConjunction reports whether a group node is an "and" group.
func (f Filter) IsConjunction() bool {
	return f.and != nil
}

// Children returns the child nodes of a group.
func (f Filter) Children() []Filter {
	if f.and != nil {
		return f.and
	}
	return f.or
}

func (f Filter) Field() string {
	return f.field
}

func (f Filter) Op() Operator {
	return f.op
}

func (f Filter) Value() interface{} {
	return f.value
}

// Validate checks the structural rules of the tree: groups are non-empty,
// leaves name a field, and the operator matches the value shape.
func (f Filter) Validate() error {
	if f.IsGroup() {
		children := f.Children()
		if len(children) == 0 {
			return fmt.Errorf("empty filter group")
		}
		for _, c := range children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if f.field == "" {
		return fmt.Errorf("filter field must not be empty")
	}
	if !f.op.valid() {
		return fmt.Errorf("unknown filter operator %q", f.op)
	}
	if f.op.needsValue() && f.value == nil {
		return fmt.Errorf("filter operator %q requires a value", f.op)
	}
	if f.op == OpIn {
		if _, ok := f.value.([]interface{}); !ok {
			return fmt.Errorf("filter operator \"in\" requires an array value")
		}
	}
	return nil
}

type filterJSON struct {
	And []Filter        `json:"and,omitempty"`
	Or  []Filter        `json:"or,omitempty"`
	F   string          `json:"f,omitempty"`
	O   Operator        `json:"o,omitempty"`
	V   json.RawMessage `json:"v,omitempty"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	if f.and != nil {
		return json.Marshal(map[string]interface{}{"and": f.and})
	}
	if f.or != nil {
		return json.Marshal(map[string]interface{}{"or": f.or})
	}
	leaf := map[string]interface{}{"f": f.field, "o": f.op}
	if f.op.needsValue() {
		leaf["v"] = f.value
	}
	return json.Marshal(leaf)
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw filterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.And != nil:
		*f = Filter{and: raw.And}
	case raw.Or != nil:
		*f = Filter{or: raw.Or}
	default:
		leaf := Filter{field: raw.F, op: raw.O}
		if raw.V != nil {
			if err := json.Unmarshal(raw.V, &leaf.value); err != nil {
				return err
			}
		}
		*f = leaf
	}
	return f.Validate()
}
