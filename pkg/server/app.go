package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"KellyMux/internal/domain/repository"
	"KellyMux/internal/handler/api"
	pkgch "KellyMux/pkg/clickhouse"
	"KellyMux/pkg/config"
	xhttp "KellyMux/pkg/http"
	pkgkafka "KellyMux/pkg/kafka"
	applogger "KellyMux/pkg/logger"
)

// App encapsulates the entire application lifecycle: the Kafka consumer
// feeding the aggregation engine, the admin HTTP server, and the
// infrastructure clients that need orderly teardown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	consumer   *pkgkafka.Consumer
	admin      *api.AdminEchoHandler
	hub        *api.MonitorHub
	publisher  repository.Publisher
	snapshots  repository.SnapshotCache
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	consumer *pkgkafka.Consumer,
	admin *api.AdminEchoHandler,
	hub *api.MonitorHub,
	publisher repository.Publisher,
	snapshots repository.SnapshotCache,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With("app"),
		consumer:  consumer,
		admin:     admin,
		hub:       hub,
		publisher: publisher,
		snapshots: snapshots,
		chClient:  chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(xhttp.Handlers(a.admin, a.hub), a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go func() {
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
		}
	}()
	a.logger.Info("kafka consumer started",
		applogger.String("input_topic", a.cfg.Kafka.InputTopic),
		applogger.String("output_topic", a.cfg.Kafka.OutputTopic))

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("admin server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services: consumer first so no new
// aggregates are produced, then the HTTP surface, then the clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.consumer.Stop(shutdownCtx); err != nil {
		a.logger.Warn("kafka consumer stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("publisher close error", applogger.Error(err))
	}

	if err := a.snapshots.Close(); err != nil {
		a.logger.Warn("snapshot cache close error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
