package engine

import (
	"sync"
	"testing"

	"github.com/capsim/capsim/internal/core"
)

func TestPolicyManager_Update(t *testing.T) {
	initial := testPolicySet(t, []core.Policy{
		{
			ID: "allow-all", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "user", Operator: core.OpExists},
			Effect:    core.Effect{Access: core.AccessAllow},
		},
	})
	replacement := testPolicySet(t, []core.Policy{
		{
			ID: "block-all", Priority: 1, Enabled: true,
			Condition: &core.Condition{Key: "user", Operator: core.OpExists},
			Effect:    core.Effect{Access: core.AccessBlock},
		},
	})

	m := NewManager(initial)
	req := &core.AccessRequest{ID: "req", Attributes: core.AttributeSet{"user": "alice"}}

	if got := m.GetEngine().Decide(req); got.Outcome != core.OutcomeAllow {
		t.Fatalf("initial set should allow, got %v", got.Outcome)
	}

	// readers racing with the swap must always see a consistent engine
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d := m.GetEngine().Decide(req)
				if d.Outcome != core.OutcomeAllow && d.Outcome != core.OutcomeBlock {
					t.Errorf("unexpected outcome %v", d.Outcome)
					return
				}
			}
		}()
	}
	m.Update(replacement)
	wg.Wait()

	if got := m.GetEngine().Decide(req); got.Outcome != core.OutcomeBlock {
		t.Fatalf("updated set should block, got %v", got.Outcome)
	}
}
