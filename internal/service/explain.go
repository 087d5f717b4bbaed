package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/engine"
	"github.com/capsim/capsim/internal/validation"
)

// Explain traces one user/context pairing against a single policy set and
// returns the detailed evaluation trail.
func (s *SimulationService) Explain(ctx context.Context, input ExplainInput) (*core.EvaluationTrace, error) {
	logger := log.Ctx(ctx)

	set, err := validation.ValidatePolicies(input.SetName, input.Policies, s.schema)
	if err != nil {
		return nil, httpError(http.StatusBadRequest, err)
	}

	user, ok := findUser(input.Users, input.UserID)
	if !ok {
		return nil, httpError(http.StatusNotFound,
			fmt.Errorf("user '%s' not found", input.UserID))
	}

	scenario, ok := findContext(input.Contexts, input.ContextName)
	if !ok {
		return nil, httpError(http.StatusNotFound,
			fmt.Errorf("context '%s' not found", input.ContextName))
	}

	requests := BuildRequests([]config.User{user}, []config.Context{scenario}, s.schema)
	req := &requests[0]
	if req.Invalid() {
		return nil, httpError(http.StatusBadRequest,
			fmt.Errorf("request attributes are invalid: %s", req.InvalidReason))
	}

	logger.Debug().
		Str("request", req.ID).
		Str("set", set.Name).
		Msg("tracing evaluation")

	trace := engine.New(set).Trace(req)
	return &trace, nil
}

func findUser(users []config.User, id string) (config.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return config.User{}, false
}

func findContext(contexts []config.Context, name string) (config.Context, bool) {
	for _, c := range contexts {
		if c.Name == name {
			return c, true
		}
	}
	return config.Context{}, false
}
