package core

// ImpactCategory classifies how a request's decision changed between the
// baseline and candidate policy sets.
type ImpactCategory string

const (
	ImpactUnchanged       ImpactCategory = "unchanged"
	ImpactNewlyBlocked    ImpactCategory = "newly_blocked"
	ImpactNewlyAllowed    ImpactCategory = "newly_allowed"
	ImpactControlsAdded   ImpactCategory = "controls_added"
	ImpactControlsRemoved ImpactCategory = "controls_removed"
	ImpactControlsChanged ImpactCategory = "controls_changed"
)

// Categories lists all impact categories in report order.
var Categories = []ImpactCategory{
	ImpactUnchanged,
	ImpactNewlyBlocked,
	ImpactNewlyAllowed,
	ImpactControlsAdded,
	ImpactControlsRemoved,
	ImpactControlsChanged,
}

// ImpactRecord is the classified diff for one request.
type ImpactRecord struct {
	RequestID string         `json:"request_id"`
	Category  ImpactCategory `json:"category"`
	Baseline  Decision       `json:"baseline"`
	Candidate Decision       `json:"candidate"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// ImpactReport is the full result of a simulation run: per-request records
// in input order plus per-category tallies. The caller owns the report once
// returned; the engine keeps no reference to it.
type ImpactReport struct {
	Records []ImpactRecord         `json:"records"`
	Counts  map[ImpactCategory]int `json:"counts"`
}

// Total returns the number of classified requests. It always equals the sum
// of the per-category counts.
func (r *ImpactReport) Total() int {
	return len(r.Records)
}

// Changed returns how many requests got a different decision.
func (r *ImpactReport) Changed() int {
	return len(r.Records) - r.Counts[ImpactUnchanged]
}
