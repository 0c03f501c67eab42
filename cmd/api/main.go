package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborlabs/stevedore/internal/api"
	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/config"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/internal/staging"
)

func main() {
	_ = godotenv.Load(".env") // ignore error if .env missing

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client := batch.NewClient(cfg.Services.UploadURL, cfg.Services.AnalyzeURL, cfg.Services.IngestURL, cfg.Services.Timeout)

	// MinIO staging (optional; without it, file selection over the API
	// is disabled)
	ctx := context.Background()
	var stg *staging.Client
	if sc, err := staging.New(cfg.MinIO); err != nil {
		logger.Warn("staging connection failed, file selection disabled", slog.String("error", err.Error()))
	} else if err := sc.EnsureBucket(ctx); err != nil {
		logger.Warn("staging bucket unavailable, file selection disabled", slog.String("error", err.Error()))
	} else {
		stg = sc
		logger.Info("connected to staging", slog.String("bucket", cfg.MinIO.Bucket))
	}

	runs := run.NewManager(client, stg, logger)
	router := api.NewRouter(logger, runs)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
