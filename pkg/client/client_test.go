package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/engine"
	"github.com/capsim/capsim/internal/service"
)

func testBackend(t *testing.T) *Client {
	t.Helper()

	svc := service.NewSimulationService(core.DefaultSchema(), 2, audit.NewNoopAuditor())
	baseline, err := core.NewPolicySet("baseline", []core.Policy{
		{
			ID: "allow-us", Priority: 10, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
	})
	if err != nil {
		t.Fatalf("building baseline: %v", err)
	}

	srv := httptest.NewServer(api.NewServer(svc, engine.NewManager(baseline), nil).Routes())
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClient_Simulate(t *testing.T) {
	cli := testBackend(t)

	result, correlation, err := cli.Simulate(context.Background(), api.SimulatePayload{
		Candidate: api.PolicySetPayload{
			Name: "candidate",
			Policies: []core.Policy{
				{
					ID: "block-us", Priority: 10, Enabled: true,
					Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
					Effect:    core.Effect{Access: core.AccessBlock},
				},
			},
		},
		Users:    []config.User{{ID: "alice", Attributes: core.AttributeSet{"location": "US"}}},
		Contexts: []config.Context{{Name: "office", Attributes: core.AttributeSet{}}},
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if correlation == "" {
		t.Errorf("correlation id should be set")
	}
	if got := result.Report.Counts[core.ImpactNewlyBlocked]; got != 1 {
		t.Errorf("newly_blocked = %d, want 1", got)
	}
}

func TestClient_Explain_NotFound(t *testing.T) {
	cli := testBackend(t)

	_, correlation, err := cli.Explain(context.Background(), api.ExplainPayload{
		UserID:   "nobody",
		Context:  "office",
		Users:    []config.User{{ID: "alice"}},
		Contexts: []config.Context{{Name: "office"}},
	})
	if err == nil {
		t.Fatalf("Explain() expected error for unknown user")
	}

	// server errors surface as typed APIErrors with the correlation id
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want APIError", err)
	}
	if apiErr.CorrelationID == "" || apiErr.CorrelationID != correlation {
		t.Errorf("correlation mismatch: %q vs %q", apiErr.CorrelationID, correlation)
	}
}

func TestClient_Info(t *testing.T) {
	cli := testBackend(t)

	info, _, err := cli.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Service != "capsim" {
		t.Errorf("service = %s, want capsim", info.Service)
	}
}
