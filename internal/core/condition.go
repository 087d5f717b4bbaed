package core

import "fmt"

// Operator defines how a leaf condition compares an attribute against its value.
type Operator string

const (
	OpEqual    Operator = "equals"
	OpNotEqual Operator = "not_equals"
	// OpContains means the attribute value contains the given substring or item.
	// for strings: "hello world" contains "world"
	// for lists: ["a", "b", "c"] contains "b"
	OpContains Operator = "contains"
	// OpIn means the attribute value is in the given list.
	// e.g., value "US" in ["US", "CA"]
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
	// OpIntersects means the attribute value (a list, e.g. group memberships)
	// shares at least one element with the given list.
	OpIntersects Operator = "intersects"
	OpExists     Operator = "exists"
	OpNotExists  Operator = "not_exists"
	// OpRange checks a numeric attribute against an inclusive [min, max] pair.
	OpRange Operator = "range"
	// OpTimeBetween checks a clock attribute ("HH:MM" or time.Time) against an
	// inclusive ["start", "end"] window. A window with start > end wraps
	// across midnight (e.g. 22:00-06:00).
	OpTimeBetween Operator = "time_between"
	// OpInNetwork checks a pre-resolved address attribute against a list of
	// CIDR prefixes. No lookups happen here, the address must already be resolved.
	OpInNetwork Operator = "in_network"
)

func (op Operator) IsValid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpContains, OpIn, OpNotIn, OpIntersects,
		OpExists, OpNotExists, OpRange, OpTimeBetween, OpInNetwork:
		return true
	default:
		return false
	}
}

// Condition represents a predicate tree over a request's attributes.
// A node is either a logic node (All/Any/Not) or a leaf (Key/Operator/Value),
// never both.
type Condition struct {
	// Logic operators
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`

	// Leaf condition
	Key      string   `yaml:"key,omitempty" json:"key,omitempty"`
	Operator Operator `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
}

func (c *Condition) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		// well it needs to be able to unmarshal into a map
		// otherwise the user entered something very weird
		return err
	}

	// isExplicit marks whether the condition is explicitly defined:
	//   { key: location, operator: in, value: ["US", "CA"] }
	// or implicitly:
	//   { location: "US" }
	isExplicit := false
	for k := range raw {
		if k == "all" || k == "any" || k == "not" || k == "key" || k == "operator" || k == "value" {
			isExplicit = true
			break
		}
	}

	if isExplicit {
		// we can just unmarshal directly into our condition struct
		type plain Condition // hack to prevent recursion :)
		var p plain
		if err := unmarshal(&p); err != nil {
			return err
		}
		*c = Condition(p) // back to condition

		// implicit EQ operator if operator missing
		if c.Key != "" && c.Operator == "" {
			c.Operator = OpEqual
		}

		return nil // nice we successfully parsed an explicit condition!
	}

	// support implicit conditions/shorthands like { location: "US" }
	// which means { key: "location", operator: "equals", value: "US" }
	var children []Condition

	for k, v := range raw {
		sub := Condition{Key: k}

		// is it an operator shorthand? e.g. { location: { in: ["US", "CA"] } }
		if vMap, ok := v.(map[string]any); ok {
			foundOperator := false
			for opKey, opVal := range vMap {
				op := Operator(opKey)
				if op.IsValid() {
					sub.Operator = op
					sub.Value = opVal
					foundOperator = true
					break // only allow one operator per key (for now)
				}
			}
			// if no operator found, default to equals
			if !foundOperator {
				sub.Operator = OpEqual
				sub.Value = v
			}
		} else {
			// simple key: value equality :)
			sub.Operator = OpEqual
			sub.Value = v
		}

		children = append(children, sub)
	}

	if len(children) == 1 {
		// if we have exactly one child, we can just use it directly
		*c = children[0]
	} else {
		// otherwise implicit AND
		c.All = children
	}

	return nil
}

// Validate checks the structural integrity of the condition tree.
// Schema compatibility (known attribute names, operator/type pairing) is
// checked separately at policy-set construction.
func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	hasAll := len(c.All) > 0
	hasAny := len(c.Any) > 0
	hasNot := c.Not != nil
	hasLeaf := c.Key != ""

	if hasAll {
		for _, sub := range c.All {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	}
	if hasAny {
		for _, sub := range c.Any {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	}
	if hasNot {
		if err := c.Not.Validate(); err != nil {
			return err
		}
	}
	if hasLeaf {
		if !c.Operator.IsValid() {
			return fmt.Errorf("invalid operator '%s' for key '%s'", c.Operator, c.Key)
		}
	}

	// make sure only one of the types is used
	count := 0
	if hasAll {
		count++
	}
	if hasAny {
		count++
	}
	if hasNot {
		count++
	}
	if hasLeaf {
		count++
	}
	if count > 1 {
		return fmt.Errorf("condition for key '%s' has multiple types set (all, any, not, leaf); only one is allowed", c.Key)
	} else if count == 0 {
		return fmt.Errorf("condition is missing required fields; must be one of (all, any, not, leaf)")
	}
	return nil
}

// Leaves calls fn for every leaf of the condition tree, aborting on the
// first error.
func (c *Condition) Leaves(fn func(leaf *Condition) error) error {
	if c == nil {
		return nil
	}
	for i := range c.All {
		if err := c.All[i].Leaves(fn); err != nil {
			return err
		}
	}
	for i := range c.Any {
		if err := c.Any[i].Leaves(fn); err != nil {
			return err
		}
	}
	if c.Not != nil {
		if err := c.Not.Leaves(fn); err != nil {
			return err
		}
	}
	if c.Key != "" {
		return fn(c)
	}
	return nil
}
