package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/database"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/logging"
	"ai-meal-coach/internal/metrics"
	"ai-meal-coach/internal/planner"
	"ai-meal-coach/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize storage
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// 3. Initialize model providers
	models, err := llm.NewRegistryFromConfig(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("failed to initialize model providers", zap.Error(err))
	}
	defer models.Close()

	plannerCfg, err := planner.NewConfig(cfg.AI)
	if err != nil {
		logger.Fatal("invalid planner config", zap.Error(err))
	}

	// 4. Initialize services
	metricsStore := metrics.NewStore(db.SQL)
	background := app.NewBackground(logger, app.DefaultTaskTimeout)
	svc := app.NewService(
		database.NewRepository(db.SQL),
		planner.NewPlanner(plannerCfg, models, logger),
		background,
		logger,
		app.WithUsageRecorder(metricsStore),
		app.WithDefaultHouseholdSize(cfg.DefaultHouseholdSize),
	)
	if cfg.SessionSweepInterval > 0 {
		go svc.RunSessionSweeper(ctx, cfg.SessionSweepInterval)
	}

	// 5. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, svc, metricsStore, telegram.NewSessionRepository(db.SQL), filepath.Dir(cfg.DatabasePath), logger)
	if err != nil {
		logger.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	// 6. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
	}

	go func() {
		logger.Info("telegram bot server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	bot.Wait()
	background.Wait()
	logger.Info("server exiting")
}
