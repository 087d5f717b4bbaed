package simulate

import (
	"github.com/capsim/capsim/internal/core"
)

// Classify diffs a baseline/candidate decision pair into an impact
// category. The cascade is priority-ordered, first match wins:
//
//	baseline=block, candidate!=block  -> newly_allowed
//	baseline!=block, candidate=block  -> newly_blocked
//	identical decisions               -> unchanged
//	candidate controls strict superset -> controls_added
//	candidate controls strict subset   -> controls_removed
//	otherwise different control sets   -> controls_changed
//
// A plain allow counts as an empty control set, so allow -> allow-with-
// controls classifies as controls_added (and the reverse as removed).
func Classify(pair core.DecisionPair) core.ImpactCategory {
	b, c := pair.Baseline, pair.Candidate

	switch {
	case b.Outcome == core.OutcomeBlock && c.Outcome != core.OutcomeBlock:
		return core.ImpactNewlyAllowed
	case b.Outcome != core.OutcomeBlock && c.Outcome == core.OutcomeBlock:
		return core.ImpactNewlyBlocked
	}

	if b.Equal(c) {
		return core.ImpactUnchanged
	}

	// both non-block (or both block, which Equal caught above); compare
	// control sets, treating plain allow as the empty set
	added := missing(c.Controls, b.Controls)   // in candidate, not baseline
	removed := missing(b.Controls, c.Controls) // in baseline, not candidate

	switch {
	case len(added) > 0 && len(removed) == 0:
		return core.ImpactControlsAdded
	case len(removed) > 0 && len(added) == 0:
		return core.ImpactControlsRemoved
	default:
		return core.ImpactControlsChanged
	}
}

// Aggregate classifies every decision pair and rolls the batch up into an
// impact report. Records preserve pair order; per-category counts always
// sum to the batch size.
func Aggregate(pairs []core.DecisionPair) *core.ImpactReport {
	report := &core.ImpactReport{
		Records: make([]core.ImpactRecord, 0, len(pairs)),
		Counts:  make(map[core.ImpactCategory]int, len(core.Categories)),
	}

	for _, pair := range pairs {
		category := Classify(pair)
		report.Records = append(report.Records, core.ImpactRecord{
			RequestID: pair.RequestID,
			Category:  category,
			Baseline:  pair.Baseline,
			Candidate: pair.Candidate,
			Warnings:  pair.Warnings,
		})
		report.Counts[category]++
	}

	return report
}

// missing returns the elements of a that are not in b. Both slices are
// small, sorted control sets; a linear scan is fine.
func missing(a, b []string) []string {
	var out []string
	for _, item := range a {
		found := false
		for _, other := range b {
			if item == other {
				found = true
				break
			}
		}
		if !found {
			out = append(out, item)
		}
	}
	return out
}
