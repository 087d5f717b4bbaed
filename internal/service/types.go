package service

import (
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
)

// SimulateInput carries everything one simulation run needs. Policies
// arrive raw and are validated here, once, before any evaluation starts.
type SimulateInput struct {
	BaselineName  string
	Baseline      []core.Policy
	CandidateName string
	Candidate     []core.Policy

	Users    []config.User
	Contexts []config.Context

	// Workers overrides the service default when > 0.
	Workers int
}

// SimulateResult is the outcome of one run.
type SimulateResult struct {
	// RunID uniquely identifies this run in the audit log.
	RunID string `json:"run_id"`

	// Pairs holds the per-request baseline/candidate decisions, in request
	// order.
	Pairs []core.DecisionPair `json:"pairs"`

	// Report is the classified diff over all pairs.
	Report *core.ImpactReport `json:"report"`
}

// ExplainInput selects one user and one context to trace against a single
// policy set.
type ExplainInput struct {
	SetName  string
	Policies []core.Policy

	UserID      string
	ContextName string

	Users    []config.User
	Contexts []config.Context
}
