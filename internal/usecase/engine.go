package usecase

import (
	"sync"

	"KellyMux/internal/domain/models"
	domrepo "KellyMux/internal/domain/repository"
	xlogger "KellyMux/pkg/logger"
)

// AggregateOwnerID marks engine-produced portfolios on the wire,
// distinguishing them from client-originated ones.
const AggregateOwnerID = "KellyMux_Aggregated"

// Engine owns the client registry and the portfolio store under one lock.
// Data updates and admin commands arrive from independent goroutines; every
// operation below runs to completion while holding mu, so a recompute never
// observes a half-applied registry change or a partially written snapshot.
// No operation blocks on I/O while holding the lock.
type Engine struct {
	mu       sync.Mutex
	registry *ClientRegistry
	store    *PortfolioStore
	cfg      AggregateConfig

	logger  *xlogger.Logger
	metrics domrepo.Metrics
}

func NewEngine(cfg AggregateConfig, logger *xlogger.Logger, metrics domrepo.Metrics) *Engine {
	if cfg.UnknownClients == "" {
		cfg.UnknownClients = RegisterUnknown
	}
	return &Engine{
		registry: NewClientRegistry(),
		store:    NewPortfolioStore(),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// RecordUpdate stores the client's latest portfolio and recomputes the
// aggregate across all known clients. The returned aggregate has an empty
// owner id when there is nothing to publish.
func (e *Engine) RecordUpdate(p models.TargetPortfolio) models.TargetPortfolio {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Put(p.Clone())
	return e.recompute()
}

// AddOrUpdateClient registers or replaces a client's risk parameters. It does
// not trigger a recompute; the next data update picks the new parameters up.
// Keeping admin changes lazy avoids a recompute storm when many clients are
// configured in a batch at startup.
func (e *Engine) AddOrUpdateClient(id string, mu, sigma float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Upsert(id, models.RiskParams{Mu: mu, Sigma: sigma})
	e.metrics.RecordRosterSize(e.registry.Len())
	e.logger.Info("client updated",
		xlogger.String("client_id", id),
		xlogger.Float64("mu", mu),
		xlogger.Float64("sigma", sigma),
	)
}

// RemoveClient drops a client from the registry and purges its stored
// portfolio under the same lock. Removing an unknown client is a no-op.
func (e *Engine) RemoveClient(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Remove(id)
	e.store.Remove(id)
	e.metrics.RecordRosterSize(e.registry.Len())
	e.logger.Info("client removed", xlogger.String("client_id", id))
}

// Clients returns a copy of the current roster for the admin API.
func (e *Engine) Clients() map[string]models.RiskParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Snapshot()
}

// recompute blends every stored portfolio into one aggregate. Caller holds
// e.mu. Summation order across clients is map iteration order; the sum is
// order-independent up to floating-point rounding.
func (e *Engine) recompute() models.TargetPortfolio {
	if e.store.Len() == 0 {
		return models.TargetPortfolio{}
	}

	weights := make(map[models.Instrument]float64)

	e.store.Each(func(id string, p models.TargetPortfolio) {
		params, ok := e.registry.Get(id)
		if !ok {
			if e.cfg.UnknownClients == DropUnknown {
				e.logger.Warn("no risk params for client, ignoring",
					xlogger.String("client_id", id))
				return
			}
			// Auto-registration is a durable upsert-on-miss: subsequent
			// recomputes reuse the same entry, keeping the output stable
			// across ticks for the same unregistered client.
			params = DefaultRiskParams()
			e.registry.Upsert(id, params)
			e.metrics.RecordRosterSize(e.registry.Len())
			e.logger.Info("auto-registered client with default params",
				xlogger.String("client_id", id),
				xlogger.Float64("mu", params.Mu),
				xlogger.Float64("sigma", params.Sigma),
			)
		}

		scalar := KellyScalar(params, e.cfg.KellyFraction)
		e.metrics.RecordClientScalar(id, scalar)
		accumulateScaled(weights, p.Weights, scalar)
	})

	return models.TargetPortfolio{OwnerID: AggregateOwnerID, Weights: weights}
}
