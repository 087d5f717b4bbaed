package engine

import (
	"github.com/capsim/capsim/internal/core"
)

// Engine evaluates requests against one validated policy set. It is
// stateless beyond the immutable set, so a single Engine is safe for
// concurrent use.
type Engine struct {
	set *core.PolicySet
}

// New creates a new Engine over the given policy set.
func New(set *core.PolicySet) *Engine {
	return &Engine{set: set}
}

// Set returns the policy set this engine evaluates.
func (e *Engine) Set() *core.PolicySet {
	return e.set
}

// Decide evaluates every enabled policy against the request and combines
// the applied effects into one final decision. Pure and deterministic: the
// same request against the same set always yields the same decision.
func (e *Engine) Decide(req *core.AccessRequest) core.Decision {
	var applied []AppliedPolicy
	for i := range e.set.Policies {
		p := &e.set.Policies[i]
		if effect, ok := evaluatePolicy(p, req); ok {
			applied = append(applied, AppliedPolicy{
				ID:       p.ID,
				Priority: p.Priority,
				Effect:   effect,
			})
		}
	}
	return Combine(applied)
}

// Trace evaluates the request like Decide but records per-policy and
// per-condition results for the explainability surface.
func (e *Engine) Trace(req *core.AccessRequest) core.EvaluationTrace {
	trace := core.EvaluationTrace{
		RequestID:  req.ID,
		Resource:   req.Resource,
		PolicySet:  e.set.Name,
		Attributes: req.Attributes,
	}

	var applied []AppliedPolicy
	for i := range e.set.Policies {
		p := &e.set.Policies[i]
		result := checkPolicy(p, req)
		trace.PolicyResults = append(trace.PolicyResults, result)
		if result.Applied {
			applied = append(applied, AppliedPolicy{
				ID:       p.ID,
				Priority: p.Priority,
				Effect:   p.Effect,
			})
		}
	}

	trace.Decision = Combine(applied)
	return trace
}
