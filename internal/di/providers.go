package di

import (
	"context"
	"fmt"
	"time"

	"KellyMux/internal/domain/repository"
	"KellyMux/internal/handler/api"
	internalrepo "KellyMux/internal/repository"
	"KellyMux/internal/usecase"
	pkgcache "KellyMux/pkg/cache"
	pkgch "KellyMux/pkg/clickhouse"
	"KellyMux/pkg/config"
	pkgkafka "KellyMux/pkg/kafka"
	"KellyMux/pkg/logger"
	"KellyMux/pkg/metrics"
	"KellyMux/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine creates the aggregation engine.
func ProvideEngine(cfg *config.Config, l *logger.Logger, m repository.Metrics) *usecase.Engine {
	return usecase.NewEngine(usecase.AggregateConfig{
		KellyFraction:  cfg.Aggregation.KellyFraction,
		UnknownClients: usecase.UnknownClientPolicy(cfg.Aggregation.UnknownClients),
	}, l.With("engine"), m)
}

// ProvideKafkaProducer creates the output-side Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the aggregate publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.OutputTopic)
}

// ProvideSnapshotCache creates the snapshot store, Redis-backed when enabled.
func ProvideSnapshotCache(cfg *config.Config) (repository.SnapshotCache, error) {
	if !cfg.Redis.Enabled {
		return internalrepo.NewCacheSnapshotStore(pkgcache.NewMemoryCache()), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return internalrepo.NewCacheSnapshotStore(rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client when auditing is
// enabled, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.ClickHouse.Database + ".admin_audit"
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database, table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideAuditLog creates the admin audit journal.
func ProvideAuditLog(chClient *pkgch.Client, cfg *config.Config) repository.AuditLog {
	if chClient == nil {
		return internalrepo.NoopAuditLog{}
	}
	return internalrepo.NewClickHouseAuditLog(chClient.DB(), cfg.ClickHouse.Database+".admin_audit")
}

// ProvideMonitorHub creates the WebSocket aggregate stream.
func ProvideMonitorHub(l *logger.Logger) *api.MonitorHub {
	return api.NewMonitorHub(l.With("monitor"))
}

// ProvideAggregateStream exposes the hub as the broadcast interface.
func ProvideAggregateStream(hub *api.MonitorHub) repository.AggregateStream {
	return hub
}

// ProvideUpdateHandler creates the handler for the input topic.
func ProvideUpdateHandler(
	engine *usecase.Engine,
	pub repository.Publisher,
	snapshots repository.SnapshotCache,
	stream repository.AggregateStream,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.PortfolioUpdateHandler {
	return usecase.NewPortfolioUpdateHandler(cfg.Kafka.InputTopic, engine, pub, snapshots, stream, m, l.With("input"))
}

// ProvideKafkaConsumer creates the input-side Kafka consumer.
func ProvideKafkaConsumer(handler *usecase.PortfolioUpdateHandler, cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(handler,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAdminHandler creates the admin API handler.
func ProvideAdminHandler(l *logger.Logger, engine *usecase.Engine, audit repository.AuditLog, snapshots repository.SnapshotCache) *api.AdminEchoHandler {
	return api.NewAdminEchoHandler(l.With("admin"), engine, audit, snapshots)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	consumer *pkgkafka.Consumer,
	adminHandler *api.AdminEchoHandler,
	hub *api.MonitorHub,
	pub repository.Publisher,
	snapshots repository.SnapshotCache,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, consumer, adminHandler, hub, pub, snapshots, chClient)
}
