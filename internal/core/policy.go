package core

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr/vm"
)

// Access is the kind of outcome a single policy contributes when it matches.
type Access string

const (
	AccessAllow Access = "allow"
	AccessBlock Access = "block"
	// AccessRequire allows access but attaches additional controls
	// (e.g. MFA) that must be satisfied.
	AccessRequire Access = "require_controls"
)

func (a Access) IsValid() bool {
	switch a {
	case AccessAllow, AccessBlock, AccessRequire:
		return true
	default:
		return false
	}
}

// Effect is what a policy contributes to the final decision when it applies.
type Effect struct {
	Access Access `yaml:"access" json:"access"`

	// Controls are the control names attached by AccessRequire effects,
	// e.g. "mfa" or "compliant_device". Ignored for other access kinds.
	Controls []string `yaml:"controls,omitempty" json:"controls,omitempty"`
}

// Policy is a single conditional access rule. Policies are immutable inputs;
// the engine never mutates them.
type Policy struct {
	// ID uniquely identifies the policy within its set.
	ID string `yaml:"id" json:"id"`

	// Name is a human-readable identifier for logs/reports.
	Name string `yaml:"name" json:"name"`

	// Description explains the intent of the policy.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Priority orders policies within a set; lower is evaluated first on ties.
	Priority int `yaml:"priority" json:"priority"`

	// Enabled policies participate in evaluation; disabled ones never apply.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Condition must be satisfied by the request's attributes for the
	// policy to apply. Either provide Condition OR Expr, not both.
	Condition *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`

	// Expr is an optional expression for more complex matching logic.
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`

	// CompiledExpr holds the pre-compiled form of Expr for efficient evaluation.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`

	// Effect is contributed to the decision when the policy applies.
	Effect Effect `yaml:"effect" json:"effect"`
}

// PolicySet is an ordered collection of policies with unique identifiers.
// Construct via NewPolicySet so the uniqueness invariant holds.
type PolicySet struct {
	Name     string
	Policies []Policy
}

// NewPolicySet builds a policy set ordered by priority ascending (ID
// ascending on ties). Duplicate identifiers are a definition error.
func NewPolicySet(name string, policies []Policy) (*PolicySet, error) {
	seen := make(map[string]struct{}, len(policies))
	for _, p := range policies {
		if p.ID == "" {
			return nil, &DefinitionError{Set: name, Reason: "policy missing id"}
		}
		if _, dup := seen[p.ID]; dup {
			return nil, &DefinitionError{Set: name, PolicyID: p.ID, Reason: "duplicate policy id"}
		}
		seen[p.ID] = struct{}{}
	}

	ordered := make([]Policy, len(policies))
	copy(ordered, policies)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	return &PolicySet{Name: name, Policies: ordered}, nil
}

// DefinitionError reports an invalid policy definition. It is only returned
// at construction/validation time, never during evaluation of a batch.
type DefinitionError struct {
	Set      string
	PolicyID string
	Reason   string
}

func (e *DefinitionError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("invalid policy definition in set '%s', policy '%s': %s", e.Set, e.PolicyID, e.Reason)
	}
	return fmt.Sprintf("invalid policy definition in set '%s': %s", e.Set, e.Reason)
}
