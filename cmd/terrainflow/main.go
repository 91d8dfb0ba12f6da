package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/terrain-analysis-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/terrain-analysis-service/internal/adapter/kafka"
	"github.com/couchcryptid/terrain-analysis-service/internal/acquire"
	"github.com/couchcryptid/terrain-analysis-service/internal/adapter/gpkg"
	"github.com/couchcryptid/terrain-analysis-service/internal/adapter/terrain"
	"github.com/couchcryptid/terrain-analysis-service/internal/config"
	"github.com/couchcryptid/terrain-analysis-service/internal/delineate"
	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/hydrology"
	"github.com/couchcryptid/terrain-analysis-service/internal/observability"
	"github.com/couchcryptid/terrain-analysis-service/internal/topology"
	"github.com/couchcryptid/terrain-analysis-service/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var fetcher domain.TileFetcher = terrain.NewClient(cfg.TileEndpoint, cfg.TileTimeout, logger)
	fetcher = terrain.NewCachedFetcher(fetcher, cfg.TileCacheSize, metrics)

	// Stage events are feature-flagged via KAFKA_BROKERS / KAFKA_EVENTS_ENABLED.
	var events workflow.EventSink
	var notifier *kafkaadapter.Notifier
	if cfg.KafkaEventsEnabled {
		notifier = kafkaadapter.NewNotifier(cfg, logger)
		events = notifier
		logger.Info("stage event publishing enabled", "topic", cfg.KafkaEventsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("stage event publishing disabled")
	}

	w := workflow.New(cfg, workflow.Stages{
		Acquirer:   acquire.NewAcquirer(fetcher, cfg.DEMResolutionM, logger),
		Engine:     hydrology.NewEngine(cfg.StreamThreshold, logger),
		Analyzer:   topology.NewAnalyzer(logger),
		Delineator: delineate.NewDelineator(logger),
		Vectors:    gpkg.NewWriter(logger),
		Events:     events,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, w, w, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run one workflow for the configured region, then keep serving status
	// and metrics until terminated.
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary := w.Run(ctx)
		if summary.Err != nil {
			logger.Error("workflow finished with absorbed error",
				"state", summary.State, "error", summary.Err)
		}
	}()

	select {
	case <-done:
		logger.Info("workflow complete; serving status until terminated")
		<-ctx.Done()
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
