package engine

import (
	"sort"

	"github.com/capsim/capsim/internal/core"
)

// AppliedPolicy is one policy that applied to a request, paired with the
// effect it contributed.
type AppliedPolicy struct {
	ID       string
	Priority int
	Effect   core.Effect
}

// Combine merges the effects of all applied policies into one final
// decision:
//
//  1. any block effect wins (deny overrides)
//  2. otherwise required controls accumulate into allow-with-controls; the
//     control set is the union across all contributing policies, so a looser
//     policy can never weaken a stricter one
//  3. otherwise a plain allow
//  4. no applied policy at all means block (fail-closed default-deny)
//
// The contributing policy list is ordered by priority ascending, id
// ascending on ties.
func Combine(applied []AppliedPolicy) core.Decision {
	var blocks, requires, allows []AppliedPolicy
	for _, ap := range applied {
		switch ap.Effect.Access {
		case core.AccessBlock:
			blocks = append(blocks, ap)
		case core.AccessRequire:
			requires = append(requires, ap)
		case core.AccessAllow:
			allows = append(allows, ap)
		}
	}

	if len(blocks) > 0 {
		return core.Decision{
			Outcome:   core.OutcomeBlock,
			PolicyIDs: policyIDs(blocks),
		}
	}

	if len(requires) > 0 {
		var controls []string
		for _, ap := range requires {
			controls = append(controls, ap.Effect.Controls...)
		}
		return core.Decision{
			Outcome:   core.OutcomeAllowWithControls,
			Controls:  core.NormalizeControls(controls),
			PolicyIDs: policyIDs(requires),
		}
	}

	if len(allows) > 0 {
		return core.Decision{
			Outcome:   core.OutcomeAllow,
			PolicyIDs: policyIDs(allows),
		}
	}

	// nothing applied: fail closed
	return core.Decision{Outcome: core.OutcomeBlock}
}

func policyIDs(applied []AppliedPolicy) []string {
	sort.SliceStable(applied, func(i, j int) bool {
		if applied[i].Priority != applied[j].Priority {
			return applied[i].Priority < applied[j].Priority
		}
		return applied[i].ID < applied[j].ID
	})
	ids := make([]string, len(applied))
	for i, ap := range applied {
		ids[i] = ap.ID
	}
	return ids
}
