package api

import (
	"encoding/json"
	"net/http"

	"github.com/capsim/capsim/internal/api/presenter"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/service"
	"github.com/capsim/capsim/internal/validation"
)

// PolicySetPayload is an inline policy set in a request body.
type PolicySetPayload struct {
	Name     string        `json:"name"`
	Policies []core.Policy `json:"policies"`
}

// SimulatePayload is the body of POST /v1/simulate. Baseline may be omitted
// to compare against the server's currently loaded set.
type SimulatePayload struct {
	Baseline  *PolicySetPayload `json:"baseline,omitempty"`
	Candidate PolicySetPayload  `json:"candidate"`

	Users    []config.User    `json:"users"`
	Contexts []config.Context `json:"contexts"`

	Workers int `json:"workers,omitempty"`
}

// ExplainPayload is the body of POST /v1/explain.
type ExplainPayload struct {
	// Set may be omitted to trace against the server's loaded set.
	Set *PolicySetPayload `json:"set,omitempty"`

	UserID  string `json:"user_id"`
	Context string `json:"context"`

	Users    []config.User    `json:"users"`
	Contexts []config.Context `json:"contexts"`
}

// ReloadPayload is the body of POST /v1/policies/reload.
type ReloadPayload struct {
	Name     string        `json:"name"`
	Policies []core.Policy `json:"policies"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var payload SimulatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		presenter.Error(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	input := service.SimulateInput{
		CandidateName: payload.Candidate.Name,
		Candidate:     payload.Candidate.Policies,
		Users:         payload.Users,
		Contexts:      payload.Contexts,
		Workers:       payload.Workers,
	}

	if payload.Baseline != nil {
		input.BaselineName = payload.Baseline.Name
		input.Baseline = payload.Baseline.Policies
	} else {
		// fall back to the server's loaded baseline
		set := s.manager.GetEngine().Set()
		input.BaselineName = set.Name
		input.Baseline = set.Policies
	}

	result, err := s.svc.Simulate(r.Context(), input)
	if err != nil {
		presenter.Err(w, r, err, "simulation failed")
		return
	}

	presenter.JSON(w, r, result, http.StatusOK)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var payload ExplainPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		presenter.Error(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	input := service.ExplainInput{
		UserID:      payload.UserID,
		ContextName: payload.Context,
		Users:       payload.Users,
		Contexts:    payload.Contexts,
	}

	if payload.Set != nil {
		input.SetName = payload.Set.Name
		input.Policies = payload.Set.Policies
	} else {
		set := s.manager.GetEngine().Set()
		input.SetName = set.Name
		input.Policies = set.Policies
	}

	trace, err := s.svc.Explain(r.Context(), input)
	if err != nil {
		presenter.Err(w, r, err, "explain failed")
		return
	}

	presenter.JSON(w, r, trace, http.StatusOK)
}

func (s *Server) handleReloadPolicies(w http.ResponseWriter, r *http.Request) {
	var payload ReloadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		presenter.Error(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	set, err := validation.ValidatePolicies(payload.Name, payload.Policies, s.svc.Schema())
	if err != nil {
		presenter.Err(w, r, err, "policy validation failed")
		return
	}

	s.manager.Update(set)
	presenter.JSON(w, r, map[string]any{
		"name":     set.Name,
		"policies": len(set.Policies),
	}, http.StatusOK)
}
