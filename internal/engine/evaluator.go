package engine

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"

	"github.com/capsim/capsim/internal/core"
)

// evaluatePolicy returns the policy's effect and whether it applies to the
// request. Disabled policies and unsatisfied conditions never apply.
// Condition evaluation short-circuits, which is safe because leaf matching
// is pure.
func evaluatePolicy(p *core.Policy, req *core.AccessRequest) (core.Effect, bool) {
	if !p.Enabled {
		return core.Effect{}, false
	}
	if p.Condition != nil && !evalCondition(*p.Condition, req.Attributes) {
		return core.Effect{}, false
	}
	if p.CompiledExpr != nil && !evalExpr(p, req) {
		return core.Effect{}, false
	}
	return p.Effect, true
}

// evalCondition is the short-circuiting tree walk used on the hot path.
// The trace-producing variant below re-walks the full tree when
// explainability is requested.
func evalCondition(cond core.Condition, attributes core.AttributeSet) bool {
	if len(cond.All) > 0 {
		for _, child := range cond.All {
			if !evalCondition(child, attributes) {
				return false
			}
		}
		return true
	}

	if len(cond.Any) > 0 {
		for _, child := range cond.Any {
			if evalCondition(child, attributes) {
				return true
			}
		}
		return false
	}

	if cond.Not != nil {
		return !evalCondition(*cond.Not, attributes)
	}

	if cond.Key != "" {
		ok, _ := evaluateLeaf(cond, attributes)
		return ok
	}

	// empty node, nothing to fail
	return true
}

func evalExpr(p *core.Policy, req *core.AccessRequest) bool {
	out, err := expr.Run(p.CompiledExpr, map[string]any{
		"attributes": map[string]any(req.Attributes),
		"resource":   req.Resource,
		"request":    req,
	})
	if err != nil {
		log.Warn().Err(err).Msgf("error evaluating expression for policy '%s'", p.ID)
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// traceCondition evaluates the full tree without short-circuiting and
// records per-node results for the explainability trail.
func traceCondition(cond core.Condition, attributes core.AttributeSet) core.ConditionResult {
	if len(cond.All) > 0 {
		res := core.ConditionResult{
			Matched: true,
			Label:   "AND",
		}
		for _, child := range cond.All {
			cr := traceCondition(child, attributes)
			res.Children = append(res.Children, cr)
			if !cr.Matched {
				res.Matched = false
			}
		}
		return res
	}

	if len(cond.Any) > 0 {
		res := core.ConditionResult{
			Matched: false,
			Label:   "OR",
		}
		for _, child := range cond.Any {
			cr := traceCondition(child, attributes)
			res.Children = append(res.Children, cr)
			if cr.Matched {
				res.Matched = true
			}
		}
		return res
	}

	if cond.Not != nil {
		cr := traceCondition(*cond.Not, attributes)
		return core.ConditionResult{
			Matched:  !cr.Matched,
			Label:    "NOT",
			Children: []core.ConditionResult{cr},
		}
	}

	if cond.Key != "" {
		matched, reason := evaluateLeaf(cond, attributes)
		return core.ConditionResult{
			Matched:    matched,
			Expression: fmt.Sprintf("%s %s %v", cond.Key, cond.Operator, cond.Value),
			Reason:     reason,
		}
	}

	return core.ConditionResult{
		Matched: true,
		Label:   "(empty)",
	}
}

// checkPolicy is the trace-producing variant of evaluatePolicy.
func checkPolicy(p *core.Policy, req *core.AccessRequest) core.PolicyResult {
	result := core.PolicyResult{
		PolicyID:    p.ID,
		Name:        p.Name,
		Description: p.Description,
		Enabled:     p.Enabled,
		Matched:     true, // fail on any mismatch
		Effect:      p.Effect,
	}

	if p.Condition != nil {
		cr := traceCondition(*p.Condition, req.Attributes)
		if !cr.Matched {
			result.Matched = false
		}
		flattenConditionResult(&result.ConditionResults, cr, 0)
	}

	if p.CompiledExpr != nil {
		matched := evalExpr(p, req)
		reason := ""
		if !matched {
			result.Matched = false
			reason = "expression evaluated to false"
		}
		result.ConditionResults = append(result.ConditionResults, core.ConditionResult{
			Expression: p.Expr,
			Matched:    matched,
			Reason:     reason,
		})
	}

	result.Applied = result.Enabled && result.Matched
	return result
}

func flattenConditionResult(out *[]core.ConditionResult, cr core.ConditionResult, depth int) {
	indent := strings.Repeat("  ", depth)

	if cr.Expression != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + cr.Expression,
			Matched:    cr.Matched,
			Reason:     cr.Reason,
		})
		return
	}

	if cr.Label != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + "[" + cr.Label + "]",
			Matched:    cr.Matched,
		})
	}

	for _, child := range cr.Children {
		flattenConditionResult(out, child, depth+1)
	}
}
