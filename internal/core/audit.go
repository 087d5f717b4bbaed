package core

import "time"

// AuditEntry records one completed simulation run.
type AuditEntry struct {
	// ID is the unique run ID (also the X-Correlation-ID over HTTP).
	ID string `json:"id"`

	// Time is the timestamp of the run.
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "simulate.run", "explain.trace")
	Action string `json:"action"`

	// Baseline and Candidate are the names of the compared policy sets.
	Baseline  string `json:"baseline,omitempty"`
	Candidate string `json:"candidate,omitempty"`

	// Requests is the batch size.
	Requests int `json:"requests"`

	// Counts are the per-category tallies of the run.
	Counts map[ImpactCategory]int `json:"counts,omitempty"`

	Error string `json:"error,omitempty"`

	// Metadata contains extra run details (e.g. worker count).
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
