// Package guard provides in-flight operation de-duplication. Engines acquire
// a key before issuing a mutation; a second caller for the same key is
// rejected immediately rather than queued, so double-submits (rapid clicks on
// the same product) collapse to a single outstanding request.
package guard

import "sync"

// Guard tracks held operation keys. Keys are opaque strings; only callers
// sharing a key are serialized.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

// TryAcquire marks key as held and returns true, or returns false when the
// key is already held. A caller that receives true must call Release exactly
// once on every exit path.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return false
	}
	g.held[key] = struct{}{}
	return true
}

// Release clears the hold on key. Releasing an unheld key is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
}

// Held reports whether key is currently held.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}
