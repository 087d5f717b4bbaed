package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/simulate"
	"github.com/capsim/capsim/internal/validation"
)

// SimulationService wires policy validation, request building, the parallel
// runner and the impact aggregator into one operation. It holds no state
// between runs; every call is self-contained.
type SimulationService struct {
	schema  core.Schema
	runner  *simulate.Runner
	auditor core.Auditor
}

func NewSimulationService(schema core.Schema, workers int, auditor core.Auditor) *SimulationService {
	return &SimulationService{
		schema:  schema,
		runner:  &simulate.Runner{Workers: workers},
		auditor: auditor,
	}
}

// Schema returns the attribute schema this service validates against.
func (s *SimulationService) Schema() core.Schema {
	return s.schema
}

// Simulate validates both policy sets, evaluates every user/context pairing
// against them and returns the decision pairs plus the classified impact
// report. On cancellation the completed pairs are aggregated and returned
// together with the context error.
func (s *SimulationService) Simulate(ctx context.Context, input SimulateInput) (*SimulateResult, error) {
	runID := xid.New().String()
	logger := log.Ctx(ctx).With().Str("run_id", runID).Logger()

	baseline, err := validation.ValidatePolicies(input.BaselineName, input.Baseline, s.schema)
	if err != nil {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("baseline policy set: %w", err))
	}
	candidate, err := validation.ValidatePolicies(input.CandidateName, input.Candidate, s.schema)
	if err != nil {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("candidate policy set: %w", err))
	}

	requests := BuildRequests(input.Users, input.Contexts, s.schema)
	if len(requests) == 0 {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("no requests to simulate (need at least one user and one context)"))
	}

	workers := input.Workers
	if workers <= 0 {
		workers = s.runner.Workers
	}
	runner := &simulate.Runner{Workers: workers}

	logger.Debug().
		Int("requests", len(requests)).
		Str("baseline", baseline.Name).
		Str("candidate", candidate.Name).
		Msg("starting simulation run")

	pairs, runErr := runner.Run(ctx, requests, baseline, candidate)
	report := simulate.Aggregate(pairs)

	result := &SimulateResult{
		RunID:  runID,
		Pairs:  pairs,
		Report: report,
	}

	entry := core.AuditEntry{
		ID:        runID,
		Time:      time.Now(),
		Action:    "simulate.run",
		Baseline:  baseline.Name,
		Candidate: candidate.Name,
		Requests:  len(pairs),
		Counts:    report.Counts,
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := s.auditor.Log(entry); err != nil {
		logger.Warn().Err(err).Msg("failed to write audit log entry")
	}

	if runErr != nil {
		// partial result: completed pairs are valid, the caller decides
		// what to do with them
		return result, runErr
	}

	logger.Info().
		Int("requests", len(pairs)).
		Int("changed", report.Changed()).
		Msg("simulation run finished")

	return result, nil
}

// BuildRequests flattens every user with every context into one access
// request per pairing. Context attributes win on collision; the engine does
// not distinguish user from context attributes afterwards. Requests whose
// merged attributes violate the schema are marked invalid so they fail
// closed instead of aborting the batch.
func BuildRequests(users []config.User, contexts []config.Context, schema core.Schema) []core.AccessRequest {
	requests := make([]core.AccessRequest, 0, len(users)*len(contexts))
	for _, user := range users {
		for _, scenario := range contexts {
			attrs := core.MergeAttributes(user.Attributes, scenario.Attributes)
			if _, taken := attrs["user"]; !taken {
				attrs["user"] = user.ID
			}

			req := core.AccessRequest{
				ID:         fmt.Sprintf("%s@%s", user.ID, scenario.Name),
				Resource:   scenario.Resource,
				Attributes: attrs,
			}

			for name, value := range attrs {
				if err := schema.CheckValue(name, value); err != nil {
					req.InvalidReason = err.Error()
					break
				}
			}

			requests = append(requests, req)
		}
	}
	return requests
}
