package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"KellyMux/internal/domain/models"
	domrepo "KellyMux/internal/domain/repository"
	pkgkafka "KellyMux/pkg/kafka"
	xlogger "KellyMux/pkg/logger"
)

// PortfolioUpdateHandler consumes target-portfolio messages, feeds them to
// the engine and forwards non-empty aggregates to the publisher. Transport
// and decoding live here; the engine only ever sees validated portfolios.
type PortfolioUpdateHandler struct {
	topic     string
	engine    *Engine
	publisher domrepo.Publisher
	snapshots domrepo.SnapshotCache
	stream    domrepo.AggregateStream
	metrics   domrepo.Metrics
	logger    *xlogger.Logger
}

func NewPortfolioUpdateHandler(
	topic string,
	engine *Engine,
	publisher domrepo.Publisher,
	snapshots domrepo.SnapshotCache,
	stream domrepo.AggregateStream,
	metrics domrepo.Metrics,
	logger *xlogger.Logger,
) *PortfolioUpdateHandler {
	return &PortfolioUpdateHandler{
		topic:     topic,
		engine:    engine,
		publisher: publisher,
		snapshots: snapshots,
		stream:    stream,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *PortfolioUpdateHandler) Topic() string { return h.topic }

// Handle processes one inbound portfolio message. A returned error feeds the
// consumer's retry/DLQ path; engine state is never left half-applied because
// RecordUpdate is atomic.
func (h *PortfolioUpdateHandler) Handle(ctx context.Context, b []byte) error {
	var p models.TargetPortfolio
	if err := json.Unmarshal(b, &p); err != nil {
		h.metrics.RecordError("input_unmarshal")
		return fmt.Errorf("decode portfolio: %w", err)
	}
	if p.OwnerID == "" {
		h.metrics.RecordError("input_missing_owner")
		return fmt.Errorf("portfolio message missing owner_id")
	}
	if p.OwnerID == AggregateOwnerID {
		// Echo of our own output looped back onto the input topic.
		h.metrics.RecordError("input_own_aggregate")
		return fmt.Errorf("refusing to ingest own aggregate %q", p.OwnerID)
	}

	h.metrics.RecordUpdate(p.OwnerID)

	start := time.Now()
	aggregate := h.engine.RecordUpdate(p)
	h.metrics.RecordLatency("recompute_seconds", time.Since(start).Seconds())

	if aggregate.IsEmpty() {
		return nil
	}

	if err := h.publisher.Publish(ctx, aggregate); err != nil {
		h.metrics.RecordError("output_publish")
		return fmt.Errorf("publish aggregate: %w", err)
	}
	h.metrics.RecordAggregatePublished(len(aggregate.Weights))
	h.stream.Broadcast(aggregate)

	// Snapshots are best-effort; a cache outage must not fail the update.
	if err := h.snapshots.StoreAggregate(ctx, aggregate); err != nil {
		h.metrics.RecordError("snapshot_aggregate")
		h.logger.Warn("aggregate snapshot failed", xlogger.Error(err))
	}
	if err := h.snapshots.StoreRoster(ctx, h.engine.Clients()); err != nil {
		h.metrics.RecordError("snapshot_roster")
		h.logger.Warn("roster snapshot failed", xlogger.Error(err))
	}

	h.logger.Debug("aggregate published",
		xlogger.String("source", p.OwnerID),
		xlogger.Int("instruments", len(aggregate.Weights)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*PortfolioUpdateHandler)(nil)
