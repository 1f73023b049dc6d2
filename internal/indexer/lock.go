package indexer

import "sync"

// RunGuard serializes indexing runs per collection. Acquire is a try-lock:
// a second run against a collection that is already being indexed is refused
// rather than queued.
type RunGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewRunGuard creates an empty guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{active: make(map[string]bool)}
}

// Acquire attempts to claim the collection. It returns false if a run is
// already in flight.
func (g *RunGuard) Acquire(collectionKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[collectionKey] {
		return false
	}
	g.active[collectionKey] = true
	return true
}

// Release frees the collection for the next run.
func (g *RunGuard) Release(collectionKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, collectionKey)
}
