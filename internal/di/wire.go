//go:build wireinject
// +build wireinject

package di

import (
	"KellyMux/pkg/config"
	"KellyMux/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvidePublisher,
		ProvideSnapshotCache,
		ProvideAuditLog,

		// Use cases
		ProvideEngine,
		ProvideUpdateHandler,
		ProvideKafkaConsumer,

		// Handlers
		ProvideMonitorHub,
		ProvideAggregateStream,
		ProvideAdminHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
