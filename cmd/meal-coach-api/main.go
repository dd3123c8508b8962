package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/database"
	"ai-meal-coach/internal/httpapi"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/logging"
	"ai-meal-coach/internal/metrics"
	"ai-meal-coach/internal/planner"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireAPI(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	models, err := llm.NewRegistryFromConfig(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("failed to initialize model providers", zap.Error(err))
	}
	defer models.Close()

	plannerCfg, err := planner.NewConfig(cfg.AI)
	if err != nil {
		logger.Fatal("invalid planner config", zap.Error(err))
	}
	mealPlanner := planner.NewPlanner(plannerCfg, models, logger)

	metricsStore := metrics.NewStore(db.SQL)
	background := app.NewBackground(logger, app.DefaultTaskTimeout)
	svc := app.NewService(
		database.NewRepository(db.SQL),
		mealPlanner,
		background,
		logger,
		app.WithUsageRecorder(metricsStore),
		app.WithDefaultHouseholdSize(cfg.DefaultHouseholdSize),
	)

	if cfg.SessionSweepInterval > 0 {
		go svc.RunSessionSweeper(ctx, cfg.SessionSweepInterval)
	}

	srv := httpapi.NewServer(cfg, svc, db.SQL, filepath.Dir(cfg.DatabasePath), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	background.Wait()
	logger.Info("server exiting")
}
