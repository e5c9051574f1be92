// Command fusiond runs the sensor data fusion service: it consumes raw
// readings from Kafka, cleans and calibrates them, maintains the streaming
// fusion buffers, and publishes fused snapshots and periodic fusion reports.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/agrisense/sensor-fusion-service/internal/adapter/http"
	kafkaadapter "github.com/agrisense/sensor-fusion-service/internal/adapter/kafka"
	"github.com/agrisense/sensor-fusion-service/internal/config"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
	"github.com/agrisense/sensor-fusion-service/internal/observability"
	"github.com/agrisense/sensor-fusion-service/internal/pipeline"
	"github.com/agrisense/sensor-fusion-service/internal/scheduler"
	"github.com/agrisense/sensor-fusion-service/internal/stream"
)

func main() {
	// Best-effort: a .env file is only present in local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	engine := fusion.NewEngine(cfg.FieldID, cfg.Calibrations, cfg.FusionWeights, logger)
	svc := stream.NewService(engine, cfg.BufferCapacity, cfg.StreamWindow, nil, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(engine, logger)

	p := pipeline.New(reader, transformer, svc, writer, cfg.FieldID, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic report publishing (feature-flagged via REPORT_ENABLED).
	var reportScheduler *scheduler.Scheduler
	if cfg.ReportEnabled {
		reportScheduler = scheduler.New(svc, writer, cfg.ReportInterval, metrics, logger)
		if err := reportScheduler.Start(); err != nil {
			logger.Error("failed to start report scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("periodic reports disabled")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start fusion pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if reportScheduler != nil {
		reportScheduler.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
