package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/rainfall-event-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-event-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/rainfall-event-etl/internal/config"
	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/couchcryptid/rainfall-event-etl/internal/observability"
	"github.com/couchcryptid/rainfall-event-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	engine, err := domain.NewEngine(cfg.AnalysisOptions(), logger)
	if err != nil {
		logger.Error("invalid analysis options", "error", err)
		os.Exit(1)
	}
	logger.Info("analysis configured",
		"origin", cfg.SeriesOrigin,
		"interval", cfg.SampleInterval,
		"threshold", cfg.RainThreshold,
		"curve_points", cfg.CurvePoints,
		"policy", cfg.ClassificationPolicy,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	// Optional workbook export alongside the Kafka sink (EXPORT_DIR).
	var loader pipeline.BatchLoader = writer
	if cfg.ExportDir != "" {
		dirLoader, err := xlsx.NewDirLoader(cfg.ExportDir, logger)
		if err != nil {
			logger.Error("failed to prepare export dir", "error", err)
			os.Exit(1)
		}
		loader = pipeline.MultiLoader{writer, dirLoader}
		logger.Info("workbook export enabled", "dir", cfg.ExportDir)
	}

	transformer := pipeline.NewTransformer(engine, logger)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	// The on-demand endpoint gets the cache; the pipeline always analyzes fresh.
	var analyzer domain.Analyzer = engine
	if cfg.ReportCacheSize > 0 {
		analyzer = cache.NewCachedAnalyzer(engine, cfg.ReportCacheSize, metrics)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, analyzer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

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
