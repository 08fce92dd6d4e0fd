package usecase

import "KellyMux/internal/domain/models"

// ClientRegistry maps client id to risk parameters. It is a plain map with
// methods; the engine's lock is the only concurrency guard, so the registry
// must never be shared outside the engine.
type ClientRegistry struct {
	clients map[string]models.RiskParams
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]models.RiskParams)}
}

// Upsert inserts or replaces the entry for id. No range validation: negative
// or zero volatility is accepted here and neutralized by the policy.
func (r *ClientRegistry) Upsert(id string, params models.RiskParams) {
	r.clients[id] = params
}

// Remove deletes the entry if present. Removing an unknown id is a no-op.
func (r *ClientRegistry) Remove(id string) {
	delete(r.clients, id)
}

// Get looks up a client's parameters. A miss is a normal outcome.
func (r *ClientRegistry) Get(id string) (models.RiskParams, bool) {
	p, ok := r.clients[id]
	return p, ok
}

func (r *ClientRegistry) Len() int {
	return len(r.clients)
}

// Snapshot copies the roster for use outside the engine lock.
func (r *ClientRegistry) Snapshot() map[string]models.RiskParams {
	out := make(map[string]models.RiskParams, len(r.clients))
	for id, p := range r.clients {
		out[id] = p
	}
	return out
}

// PortfolioStore keeps the most recent target portfolio per client. Older
// snapshots are discarded on overwrite; no history is retained.
type PortfolioStore struct {
	portfolios map[string]models.TargetPortfolio
}

func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{portfolios: make(map[string]models.TargetPortfolio)}
}

// Put overwrites the owner's latest portfolio.
func (s *PortfolioStore) Put(p models.TargetPortfolio) {
	s.portfolios[p.OwnerID] = p
}

// Remove drops a client's portfolio so stale weights cannot leak into the
// next recompute.
func (s *PortfolioStore) Remove(id string) {
	delete(s.portfolios, id)
}

func (s *PortfolioStore) Len() int {
	return len(s.portfolios)
}

// Each calls fn for every stored portfolio. Iteration order is map order and
// carries no meaning.
func (s *PortfolioStore) Each(fn func(id string, p models.TargetPortfolio)) {
	for id, p := range s.portfolios {
		fn(id, p)
	}
}
