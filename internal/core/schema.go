package core

import (
	"fmt"
	"time"
)

// AttributeType declares how an attribute's values are interpreted by the
// matcher and which operators are valid against it.
type AttributeType string

const (
	TypeString AttributeType = "string"
	TypeBool   AttributeType = "bool"
	TypeNumber AttributeType = "number"
	// TypeStrings is a set of strings, e.g. group memberships.
	TypeStrings AttributeType = "strings"
	// TypeClock is a time-of-day value, either "HH:MM" or a time.Time.
	TypeClock AttributeType = "clock"
	// TypeNetwork is a pre-resolved IP address in string form.
	TypeNetwork AttributeType = "network"
)

func (t AttributeType) IsValid() bool {
	switch t {
	case TypeString, TypeBool, TypeNumber, TypeStrings, TypeClock, TypeNetwork:
		return true
	default:
		return false
	}
}

// Schema maps attribute names to their declared types. Every condition leaf
// must reference a schema attribute with a compatible operator; this is
// enforced once at policy-set construction. At evaluation time a request
// missing a schema attribute simply fails the leaf, it never errors.
type Schema map[string]AttributeType

// DefaultSchema covers the conventional conditional access attributes.
// Deployments extend it via configuration.
func DefaultSchema() Schema {
	return Schema{
		"user":             TypeString,
		"department":       TypeString,
		"groups":           TypeStrings,
		"roles":            TypeStrings,
		"location":         TypeString,
		"device_compliant": TypeBool,
		"device_managed":   TypeBool,
		"risk":             TypeString,
		"risk_score":       TypeNumber,
		"network_trusted":  TypeBool,
		"ip":               TypeNetwork,
		"time":             TypeClock,
	}
}

// Extend returns a copy of the schema with the given attributes merged in.
// Extensions win over existing declarations.
func (s Schema) Extend(extra Schema) Schema {
	merged := make(Schema, len(s)+len(extra))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// operatorsByType lists which operators are valid per attribute type.
var operatorsByType = map[AttributeType][]Operator{
	TypeString:  {OpEqual, OpNotEqual, OpContains, OpIn, OpNotIn, OpExists, OpNotExists},
	TypeBool:    {OpEqual, OpNotEqual, OpExists, OpNotExists},
	TypeNumber:  {OpEqual, OpNotEqual, OpIn, OpNotIn, OpRange, OpExists, OpNotExists},
	TypeStrings: {OpContains, OpIntersects, OpEqual, OpNotEqual, OpExists, OpNotExists},
	TypeClock:   {OpTimeBetween, OpExists, OpNotExists},
	TypeNetwork: {OpEqual, OpNotEqual, OpIn, OpNotIn, OpInNetwork, OpExists, OpNotExists},
}

// CheckLeaf verifies that a condition leaf references a known attribute with
// an operator compatible with its declared type.
func (s Schema) CheckLeaf(leaf *Condition) error {
	typ, known := s[leaf.Key]
	if !known {
		return fmt.Errorf("condition references unknown attribute '%s'", leaf.Key)
	}
	for _, op := range operatorsByType[typ] {
		if op == leaf.Operator {
			return nil
		}
	}
	return fmt.Errorf("operator '%s' is not valid for attribute '%s' of type %s",
		leaf.Operator, leaf.Key, typ)
}

// CheckValue verifies that an attribute value carried by a request is
// representable under the declared type. Unknown attributes are accepted,
// policies just cannot reference them.
func (s Schema) CheckValue(name string, value any) error {
	typ, known := s[name]
	if !known {
		return nil
	}

	switch typ {
	case TypeString, TypeNetwork:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("attribute '%s' must be a string, got %T", name, value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("attribute '%s' must be a bool, got %T", name, value)
		}
	case TypeNumber:
		switch value.(type) {
		case int, int32, int64, uint64, float32, float64:
		default:
			return fmt.Errorf("attribute '%s' must be numeric, got %T", name, value)
		}
	case TypeStrings:
		switch v := value.(type) {
		case []string:
		case []any:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("attribute '%s' must be a list of strings", name)
				}
			}
		default:
			return fmt.Errorf("attribute '%s' must be a list of strings, got %T", name, value)
		}
	case TypeClock:
		switch value.(type) {
		case string, time.Time:
			// "HH:MM" strings are parsed lazily by the matcher
		default:
			return fmt.Errorf("attribute '%s' must be a clock value (\"HH:MM\" or time), got %T", name, value)
		}
	}
	return nil
}
