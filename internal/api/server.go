package api

import (
	"net/http"

	"github.com/capsim/capsim/internal/api/middleware"
	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/engine"
	"github.com/capsim/capsim/internal/service"
)

// Server exposes the simulation engine over HTTP. The server never enforces
// anything; it only evaluates what-if runs against the policy sets it is
// handed.
type Server struct {
	manager *engine.PolicyManager
	auditor core.Auditor
	svc     *service.SimulationService
}

func NewServer(
	svc *service.SimulationService,
	manager *engine.PolicyManager,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	return &Server{
		manager: manager,
		auditor: auditor,
		svc:     svc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// simulation routes
	mux.HandleFunc("POST "+SimulateRoute, s.handleSimulate)
	mux.HandleFunc("POST "+ExplainRoute, s.handleExplain)
	mux.HandleFunc("POST "+ReloadPoliciesRoute, s.handleReloadPolicies)

	mux.HandleFunc("GET "+ListAuditsRoute, s.handleListRuns)

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
