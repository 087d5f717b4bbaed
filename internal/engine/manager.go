package engine

import (
	"sync"
	"sync/atomic"

	"github.com/capsim/capsim/internal/core"
)

// PolicyManager holds the server's current baseline engine and allows
// atomic hot-swapping when policies are reloaded. Readers never block.
type PolicyManager struct {
	currentEngine atomic.Pointer[Engine]
	mu            sync.Mutex
}

func NewManager(initial *core.PolicySet) *PolicyManager {
	m := &PolicyManager{}
	m.currentEngine.Store(New(initial))
	return m
}

func (m *PolicyManager) GetEngine() *Engine {
	return m.currentEngine.Load()
}

// Update swaps in a new baseline policy set. The set must already be
// validated; in-flight evaluations keep using the engine they started with.
func (m *PolicyManager) Update(set *core.PolicySet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentEngine.Store(New(set))
}
