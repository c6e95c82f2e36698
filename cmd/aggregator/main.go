package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/crisis-event-aggregator/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crisis-event-aggregator/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-event-aggregator/internal/app"
	"github.com/couchcryptid/crisis-event-aggregator/internal/config"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/couchcryptid/crisis-event-aggregator/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := app.BuildSources(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	agg := pipeline.New(sources.List, cfg.SourceTimeout, logger, metrics)
	logger.Info("sources configured", "sources", agg.SourceNames(), "timeout", cfg.SourceTimeout)

	srv := httpadapter.NewServer(cfg.HTTPAddr, agg, cfg.CORSAllowedOrigins, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm-up aggregation flips readiness once every source has settled.
	go func() {
		if _, err := agg.Aggregate(ctx); err != nil && ctx.Err() == nil {
			logger.Error("warm-up aggregation failed", "error", err)
		}
	}()

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		refresher := pipeline.NewRefresher(agg, writer, cfg.PublishInterval, logger, metrics)
		go func() {
			if err := refresher.Run(ctx); err != nil {
				logger.Error("publisher error", "error", err)
			}
		}()
		logger.Info("snapshot publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("snapshot publisher disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := sources.Close(); err != nil {
		logger.Error("source cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
