package validation

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/capsim/capsim/internal/core"
)

// ValidatePolicies checks a policy list against the schema and returns a
// validated, ordered policy set. All definition problems (duplicate ids,
// malformed conditions, operator/type mismatches, bad expressions) are
// reported here, once, so evaluation of a batch can stay total.
// The input slice is never written to; compiled expr programs land in a
// private copy, so a live, shared slice is safe to pass in.
func ValidatePolicies(setName string, policies []core.Policy, schema core.Schema) (*core.PolicySet, error) {
	checked := make([]core.Policy, len(policies))
	copy(checked, policies)

	for i, p := range checked {
		if p.ID == "" {
			return nil, &core.DefinitionError{Set: setName, Reason: fmt.Sprintf("policy #%d missing id", i)}
		}
		if !p.Effect.Access.IsValid() {
			return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
				Reason: fmt.Sprintf("invalid effect access '%s'", p.Effect.Access)}
		}
		if p.Effect.Access == core.AccessRequire && len(p.Effect.Controls) == 0 {
			return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
				Reason: "require_controls effect without controls"}
		}
		if p.Effect.Access != core.AccessRequire && len(p.Effect.Controls) > 0 {
			return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
				Reason: fmt.Sprintf("controls are only valid for require_controls effects, not '%s'", p.Effect.Access)}
		}

		if p.Condition != nil && p.Expr != "" {
			return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
				Reason: "has both condition and expr set; only one is allowed"}
		}
		if p.Condition == nil && p.Expr == "" {
			// a policy that matches nothing is almost certainly a mistake
			return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
				Reason: "has neither condition nor expr set"}
		}

		if p.Condition != nil {
			if err := p.Condition.Validate(); err != nil {
				return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID, Reason: err.Error()}
			}
			if err := p.Condition.Leaves(schema.CheckLeaf); err != nil {
				return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID, Reason: err.Error()}
			}
		}

		if p.Expr != "" {
			program, err := expr.Compile(p.Expr, expr.AsBool())
			if err != nil {
				return nil, &core.DefinitionError{Set: setName, PolicyID: p.ID,
					Reason: fmt.Sprintf("compiling expr: %v", err)}
			}
			checked[i].CompiledExpr = program
		}
	}

	return core.NewPolicySet(setName, checked)
}
