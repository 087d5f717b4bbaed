package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/capsim/capsim/internal/core"
)

func testPolicySet(t *testing.T, policies []core.Policy) *core.PolicySet {
	t.Helper()
	set, err := core.NewPolicySet("test", policies)
	if err != nil {
		t.Fatalf("building policy set: %v", err)
	}
	return set
}

func TestEngine_Decide(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "allow-us", Priority: 10, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpIn, Value: []string{"US", "CA"}},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
		{
			ID: "block-high-risk", Priority: 20, Enabled: true,
			Condition: &core.Condition{Key: "risk", Operator: core.OpEqual, Value: "high"},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
		{
			ID: "mfa-unmanaged", Priority: 30, Enabled: true,
			Condition: &core.Condition{Key: "device_managed", Operator: core.OpEqual, Value: false},
			Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"mfa"}},
		},
		{
			ID: "block-everyone", Priority: 5, Enabled: false,
			Condition: &core.Condition{Key: "location", Operator: core.OpExists},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
	})
	eng := New(set)

	tests := []struct {
		name       string
		attributes core.AttributeSet
		want       core.Decision
	}{
		{
			name:       "Plain Allow",
			attributes: core.AttributeSet{"location": "US", "risk": "low", "device_managed": true},
			want:       core.Decision{Outcome: core.OutcomeAllow, PolicyIDs: []string{"allow-us"}},
		},
		{
			name:       "Deny Overrides Allow",
			attributes: core.AttributeSet{"location": "US", "risk": "high", "device_managed": true},
			want:       core.Decision{Outcome: core.OutcomeBlock, PolicyIDs: []string{"block-high-risk"}},
		},
		{
			name:       "Controls Attach to Allow",
			attributes: core.AttributeSet{"location": "CA", "risk": "low", "device_managed": false},
			want: core.Decision{
				Outcome:   core.OutcomeAllowWithControls,
				Controls:  []string{"mfa"},
				PolicyIDs: []string{"mfa-unmanaged"},
			},
		},
		{
			name:       "Nothing Matches - Default Deny with Empty Contributors",
			attributes: core.AttributeSet{"location": "RU", "risk": "low", "device_managed": true},
			want:       core.Decision{Outcome: core.OutcomeBlock},
		},
		{
			name:       "Disabled Block Never Applies",
			attributes: core.AttributeSet{"location": "US", "risk": "low", "device_managed": true},
			want:       core.Decision{Outcome: core.OutcomeAllow, PolicyIDs: []string{"allow-us"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &core.AccessRequest{ID: "req", Attributes: tt.attributes}
			got := eng.Decide(req)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Fail-closed contract: a Block policy that does not apply leaves nothing
// applied, and an empty contributor list still means Block, not Allow.
func TestEngine_Decide_FailClosed(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "p1", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpNotIn, Value: []string{"US"}},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
	})
	eng := New(set)

	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"location": "US"}}
	want := core.Decision{Outcome: core.OutcomeBlock}
	if diff := cmp.Diff(want, eng.Decide(req)); diff != "" {
		t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Decide_OnlyApplyingPolicyWins(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "p1", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "device_compliant", Operator: core.OpEqual, Value: false},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
		{
			ID: "p2", Priority: 2, Enabled: true,
			Condition: &core.Condition{Key: "device_compliant", Operator: core.OpEqual, Value: true},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
	})
	eng := New(set)

	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"device_compliant": true}}
	want := core.Decision{Outcome: core.OutcomeAllow, PolicyIDs: []string{"p2"}}
	if diff := cmp.Diff(want, eng.Decide(req)); diff != "" {
		t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Decide_ControlsUnion(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "p1", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "risk", Operator: core.OpEqual, Value: "high"},
			Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"mfa"}},
		},
		{
			ID: "p2", Priority: 2, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "foreign"},
			Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"compliant_device"}},
		},
	})
	eng := New(set)

	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"risk": "high", "location": "foreign"}}
	want := core.Decision{
		Outcome:   core.OutcomeAllowWithControls,
		Controls:  []string{"compliant_device", "mfa"},
		PolicyIDs: []string{"p1", "p2"},
	}
	if diff := cmp.Diff(want, eng.Decide(req)); diff != "" {
		t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

// Adding another matching require_controls policy may only grow the
// resulting control set, never shrink it.
func TestEngine_Decide_ControlsNeverShrink(t *testing.T) {
	base := []core.Policy{
		{
			ID: "require-mfa", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "risk", Operator: core.OpEqual, Value: "high"},
			Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"mfa"}},
		},
		{
			ID: "require-device", Priority: 2, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "foreign"},
			Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"compliant_device"}},
		},
	}
	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"risk": "high", "location": "foreign"}}

	before := New(testPolicySet(t, base)).Decide(req)
	if before.Outcome != core.OutcomeAllowWithControls {
		t.Fatalf("Decide() outcome = %v, want allow_with_controls", before.Outcome)
	}

	grown := append(append([]core.Policy{}, base...), core.Policy{
		ID: "require-approval", Priority: 3, Enabled: true,
		Condition: &core.Condition{Key: "risk", Operator: core.OpExists},
		Effect:    core.Effect{Access: core.AccessRequire, Controls: []string{"manager_approval", "mfa"}},
	})
	after := New(testPolicySet(t, grown)).Decide(req)

	have := make(map[string]struct{}, len(after.Controls))
	for _, c := range after.Controls {
		have[c] = struct{}{}
	}
	for _, c := range before.Controls {
		if _, ok := have[c]; !ok {
			t.Errorf("control %q dropped after adding a policy: before %v, after %v",
				c, before.Controls, after.Controls)
		}
	}
	if len(after.Controls) <= len(before.Controls) {
		t.Errorf("control set did not grow: before %v, after %v", before.Controls, after.Controls)
	}
}

func TestEngine_Decide_Deterministic(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "allow-all", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "user", Operator: core.OpExists},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
	})
	eng := New(set)
	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"user": "alice"}}

	first := eng.Decide(req)
	for i := 0; i < 100; i++ {
		if got := eng.Decide(req); !got.Equal(first) {
			t.Fatalf("Decide() not deterministic: run %d got %+v, first %+v", i, got, first)
		}
	}
}

func TestEngine_Trace(t *testing.T) {
	set := testPolicySet(t, []core.Policy{
		{
			ID: "allow-us", Name: "Allow US", Priority: 10, Enabled: true,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
		{
			ID: "off", Name: "Disabled", Priority: 20, Enabled: false,
			Condition: &core.Condition{Key: "location", Operator: core.OpEqual, Value: "US"},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
	})
	eng := New(set)

	req := &core.AccessRequest{
		ID:         "alice@office",
		Resource:   "crm",
		Attributes: core.AttributeSet{"location": "US"},
	}
	trace := eng.Trace(req)

	if len(trace.PolicyResults) != 2 {
		t.Fatalf("Trace() covered %d policies, want 2 (disabled included)", len(trace.PolicyResults))
	}
	if !trace.PolicyResults[0].Applied {
		t.Errorf("allow-us should have applied")
	}
	if trace.PolicyResults[1].Applied {
		t.Errorf("disabled policy must not apply")
	}
	if trace.PolicyResults[1].Enabled {
		t.Errorf("disabled policy should be reported as disabled")
	}
	if trace.Decision.Outcome != core.OutcomeAllow {
		t.Errorf("Trace() decision = %v, want allow", trace.Decision.Outcome)
	}

	// the trace must agree with the plain evaluation path
	if decision := eng.Decide(req); !decision.Equal(trace.Decision) {
		t.Errorf("Trace() decision %+v diverges from Decide() %+v", trace.Decision, decision)
	}
}
