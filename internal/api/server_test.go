package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/engine"
	"github.com/capsim/capsim/internal/service"
)

func testServer(t *testing.T) (*httptest.Server, *audit.InMemoryAuditor) {
	t.Helper()

	auditor := audit.NewInMemoryAuditor()
	svc := service.NewSimulationService(core.DefaultSchema(), 2, auditor)

	baseline, err := core.NewPolicySet("loaded-baseline", []core.Policy{
		{
			ID: "allow-us", Priority: 10, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
	})
	if err != nil {
		t.Fatalf("building baseline: %v", err)
	}

	srv := httptest.NewServer(NewServer(svc, engine.NewManager(baseline), auditor).Routes())
	t.Cleanup(srv.Close)
	return srv, auditor
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + HealthCheckRoute)
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_Simulate(t *testing.T) {
	srv, auditor := testServer(t)

	payload := SimulatePayload{
		// no baseline: the server's loaded set is used
		Candidate: PolicySetPayload{
			Name: "candidate",
			Policies: []core.Policy{
				{
					ID: "allow-us", Priority: 10, Enabled: true,
					Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
					Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"mfa"}},
				},
			},
		},
		Users: []config.User{
			{ID: "alice", Attributes: core.AttributeSet{"location": "US"}},
		},
		Contexts: []config.Context{
			{Name: "office", Attributes: core.AttributeSet{}},
		},
	}

	resp := postJSON(t, srv.URL+SimulateRoute, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("simulate status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Correlation-ID"); got == "" {
		t.Errorf("response should carry a correlation id")
	}

	var result service.SimulateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}

	if len(result.Pairs) != 1 {
		t.Fatalf("result has %d pairs, want 1", len(result.Pairs))
	}
	pair := result.Pairs[0]
	if pair.Baseline.Outcome != core.OutcomeAllow {
		t.Errorf("baseline = %v, want allow (server's loaded set)", pair.Baseline.Outcome)
	}
	if pair.Candidate.Outcome != core.OutcomeAllowWithControls {
		t.Errorf("candidate = %v, want allow_with_controls", pair.Candidate.Outcome)
	}
	if got := result.Report.Counts[core.ImpactControlsAdded]; got != 1 {
		t.Errorf("controls_added = %d, want 1", got)
	}

	entries, err := auditor.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("run should be audited, got %d entries", len(entries))
	}
}

func TestServer_Simulate_InvalidPolicies(t *testing.T) {
	srv, _ := testServer(t)

	payload := SimulatePayload{
		Candidate: PolicySetPayload{
			Name: "broken",
			Policies: []core.Policy{
				{ID: "p1", Enabled: true, Effect: core.Effect{Access: "grant"}},
			},
		},
		Users:    []config.User{{ID: "alice"}},
		Contexts: []config.Context{{Name: "office"}},
	}

	resp := postJSON(t, srv.URL+SimulateRoute, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Explain(t *testing.T) {
	srv, _ := testServer(t)

	payload := ExplainPayload{
		UserID:  "alice",
		Context: "office",
		Users: []config.User{
			{ID: "alice", Attributes: core.AttributeSet{"location": "US"}},
		},
		Contexts: []config.Context{
			{Name: "office", Attributes: core.AttributeSet{}},
		},
	}

	resp := postJSON(t, srv.URL+ExplainRoute, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("explain status = %d, want 200", resp.StatusCode)
	}

	var trace core.EvaluationTrace
	if err := json.NewDecoder(resp.Body).Decode(&trace); err != nil {
		t.Fatalf("decoding trace: %v", err)
	}
	if trace.PolicySet != "loaded-baseline" {
		t.Errorf("trace set = %s, want loaded-baseline", trace.PolicySet)
	}
	if trace.Decision.Outcome != core.OutcomeAllow {
		t.Errorf("decision = %v, want allow", trace.Decision.Outcome)
	}
}

func TestServer_Explain_UnknownUser(t *testing.T) {
	srv, _ := testServer(t)

	payload := ExplainPayload{
		UserID:   "nobody",
		Context:  "office",
		Users:    []config.User{{ID: "alice"}},
		Contexts: []config.Context{{Name: "office"}},
	}

	resp := postJSON(t, srv.URL+ExplainRoute, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_ReloadPolicies(t *testing.T) {
	srv, _ := testServer(t)

	reload := ReloadPayload{
		Name: "tightened",
		Policies: []core.Policy{
			{
				ID: "block-everything", Priority: 1, Enabled: true,
				Condition: &core.Condition{Key: "user", Operator: core.OpExists},
				Effect:    core.Effect{Access: core.AccessBlock},
			},
		},
	}
	resp := postJSON(t, srv.URL+ReloadPoliciesRoute, reload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d, want 200", resp.StatusCode)
	}

	// the swapped set is now the implicit baseline
	payload := ExplainPayload{
		UserID:   "alice",
		Context:  "office",
		Users:    []config.User{{ID: "alice", Attributes: core.AttributeSet{"location": "US"}}},
		Contexts: []config.Context{{Name: "office", Attributes: core.AttributeSet{}}},
	}
	resp = postJSON(t, srv.URL+ExplainRoute, payload)
	defer resp.Body.Close()

	var trace core.EvaluationTrace
	if err := json.NewDecoder(resp.Body).Decode(&trace); err != nil {
		t.Fatalf("decoding trace: %v", err)
	}
	if trace.PolicySet != "tightened" {
		t.Errorf("trace set = %s, want tightened", trace.PolicySet)
	}
	if trace.Decision.Outcome != core.OutcomeBlock {
		t.Errorf("decision = %v, want block after reload", trace.Decision.Outcome)
	}
}

func TestServer_ReloadPolicies_RejectsInvalid(t *testing.T) {
	srv, _ := testServer(t)

	resp := postJSON(t, srv.URL+ReloadPoliciesRoute, ReloadPayload{
		Name: "broken",
		Policies: []core.Policy{
			{ID: "p1", Enabled: true, Effect: core.Effect{Access: core.AccessAllow}},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (policy has no condition)", resp.StatusCode)
	}
}

func TestServer_ListRuns(t *testing.T) {
	srv, auditor := testServer(t)

	if err := auditor.Log(core.AuditEntry{ID: "run-1", Action: "simulate.run"}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	resp, err := http.Get(srv.URL + ListAuditsRoute + "?limit=5")
	if err != nil {
		t.Fatalf("GET runs: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var entries []core.AuditEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "run-1" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestServer_ListRuns_Filtered(t *testing.T) {
	srv, auditor := testServer(t)

	seed := []core.AuditEntry{
		{ID: "run-1", Action: "simulate.run"},
		{ID: "run-2", Action: "explain.trace"},
		{ID: "run-3", Action: "simulate.run"},
	}
	for _, entry := range seed {
		if err := auditor.Log(entry); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{name: "By Action", query: "?action=simulate.run", wantIDs: []string{"run-1", "run-3"}},
		{name: "By Run ID", query: "?run_id=run-2", wantIDs: []string{"run-2"}},
		{name: "No Match", query: "?action=simulate.run&run_id=run-2", wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + ListAuditsRoute + tt.query)
			if err != nil {
				t.Fatalf("GET runs: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			var entries []core.AuditEntry
			if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
				t.Fatalf("decoding entries: %v", err)
			}
			var gotIDs []string
			for _, entry := range entries {
				gotIDs = append(gotIDs, entry.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, gotIDs); diff != "" {
				t.Errorf("run ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
