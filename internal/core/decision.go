package core

import "sort"

// Outcome is the final result for one request under one policy set.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeBlock Outcome = "block"
	// OutcomeAllowWithControls grants access only if the attached controls
	// are satisfied.
	OutcomeAllowWithControls Outcome = "allow_with_controls"
)

// Decision is the combined outcome of all applicable policies for a request.
type Decision struct {
	Outcome Outcome `json:"outcome"`

	// Controls is the union of controls required by all contributing
	// policies, sorted. Only set for OutcomeAllowWithControls.
	Controls []string `json:"controls,omitempty"`

	// PolicyIDs lists the policies that contributed to this decision,
	// ordered by priority ascending then id ascending. Empty for the
	// default-deny case where no policy applied.
	PolicyIDs []string `json:"policy_ids,omitempty"`
}

// Equal compares decisions by value: outcome plus control set. The
// contributing policy list is explainability metadata and intentionally not
// part of decision identity.
func (d Decision) Equal(other Decision) bool {
	if d.Outcome != other.Outcome {
		return false
	}
	if len(d.Controls) != len(other.Controls) {
		return false
	}
	for i, c := range d.Controls {
		if other.Controls[i] != c {
			return false
		}
	}
	return true
}

// NormalizeControls sorts and dedupes a control set.
func NormalizeControls(controls []string) []string {
	if len(controls) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(controls))
	out := make([]string, 0, len(controls))
	for _, c := range controls {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DecisionPair holds the baseline and candidate decisions for one request.
type DecisionPair struct {
	RequestID string   `json:"request_id"`
	Baseline  Decision `json:"baseline"`
	Candidate Decision `json:"candidate"`

	// Warnings distinguish "blocked because nothing matched" (normal, no
	// warning) from "blocked because the request's attributes were invalid".
	Warnings []string `json:"warnings,omitempty"`
}
