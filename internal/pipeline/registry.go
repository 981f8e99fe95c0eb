package pipeline

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry hands out an orchestrator whose in-flight guard is per owner, so
// each owner has at most one batch running while different owners upload
// independently. Owners are tracked only while a batch runs.
type Registry struct {
	orch   *Orchestrator
	owners *ownerGuard
}

func NewRegistry(deps Dependencies, opts Options, log *zap.Logger) *Registry {
	owners := &ownerGuard{active: make(map[string]struct{})}
	return &Registry{orch: newOrchestrator(deps, opts, log, owners), owners: owners}
}

func (r *Registry) For(ownerID string) *Orchestrator {
	return r.orch
}

// InFlight is the number of owners with a running batch.
func (r *Registry) InFlight() int {
	return r.owners.count()
}

type batchGuard interface {
	acquire(ownerID string) bool
	release(ownerID string)
	busy(ownerID string) bool
}

// instanceGuard admits one batch at a time whoever owns it.
type instanceGuard struct {
	active atomic.Bool
}

func (g *instanceGuard) acquire(string) bool { return g.active.CompareAndSwap(false, true) }
func (g *instanceGuard) release(string)      { g.active.Store(false) }
func (g *instanceGuard) busy(string) bool    { return g.active.Load() }

type ownerGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func (g *ownerGuard) acquire(ownerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[ownerID]; ok {
		return false
	}
	g.active[ownerID] = struct{}{}
	return true
}

func (g *ownerGuard) release(ownerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, ownerID)
}

func (g *ownerGuard) busy(ownerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[ownerID]
	return ok
}

func (g *ownerGuard) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
