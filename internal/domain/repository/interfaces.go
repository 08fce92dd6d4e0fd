package repository

import (
	"context"

	"KellyMux/internal/domain/models"
)

// Publisher hands aggregates to downstream consumers. Fire-and-forget from
// the engine's point of view; failures are the adapter's problem.
type Publisher interface {
	Publish(ctx context.Context, p models.TargetPortfolio) error
	Close() error
}

// SnapshotCache keeps the last published aggregate and the current roster for
// the admin API. The engine never reads it back; it is write-through only.
type SnapshotCache interface {
	StoreAggregate(ctx context.Context, p models.TargetPortfolio) error
	LoadAggregate(ctx context.Context) (models.TargetPortfolio, bool, error)
	StoreRoster(ctx context.Context, clients map[string]models.RiskParams) error
	Close() error
}

// AuditLog journals admin commands, including rejected ones.
type AuditLog interface {
	Record(ctx context.Context, e models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	Close() error
}

// AggregateStream pushes published aggregates to live observers.
type AggregateStream interface {
	Broadcast(p models.TargetPortfolio)
}

// Metrics abstracts the Prometheus recorder.
type Metrics interface {
	RecordUpdate(clientID string)
	RecordAggregatePublished(instruments int)
	RecordClientScalar(clientID string, scalar float64)
	RecordRosterSize(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
