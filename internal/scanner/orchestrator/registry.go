package orchestrator

import "sync"

// Registry tracks in-flight scan runs keyed by strategy id. Locking is
// scoped to registry mutation only; instrument evaluation never holds it.
type Registry struct {
	mu      sync.Mutex
	running map[string]string
}

func NewRegistry() *Registry {
	return &Registry{running: make(map[string]string)}
}

// Acquire reserves the strategy for runID. It fails with RunInProgressError
// when another run already holds the strategy.
func (r *Registry) Acquire(strategyID, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.running[strategyID]; ok {
		return &RunInProgressError{StrategyID: strategyID, RunID: current}
	}
	r.running[strategyID] = runID
	return nil
}

// Release frees the strategy after its run finalized.
func (r *Registry) Release(strategyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, strategyID)
}

// Running returns the id of the in-flight run for the strategy, if any.
func (r *Registry) Running(strategyID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.running[strategyID]
	return id, ok
}
