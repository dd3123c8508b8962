package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/database"
	"ai-meal-coach/internal/httpapi"
	"ai-meal-coach/internal/logging"
	"ai-meal-coach/internal/metrics"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Maintenance commands never generate, so no model provider is wired.
	svc := app.NewService(database.NewRepository(db.SQL), nil, nil, logger)

	switch os.Args[1] {
	case "expire-sessions":
		n, err := svc.ExpireSessions(ctx)
		if err != nil {
			log.Fatalf("Expiring sessions failed: %v", err)
		}
		fmt.Printf("Expired %d sessions.\n", n)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", cfg.MetricsRetentionDays, "Keep records for the last N days")
		_ = cleanupCmd.Parse(os.Args[2:])

		affected, err := metrics.NewStore(db.SQL).Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "learn":
		if len(os.Args) < 3 {
			log.Fatal("Usage: meal-coach learn <user-id>")
		}
		out, err := svc.RunLearning(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Learning failed: %v", err)
		}
		if !out.ShouldUpdate {
			fmt.Println("Not enough confirmed history to learn preferences yet.")
			return
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Preferences); err != nil {
			log.Fatalf("Failed to print preferences: %v", err)
		}
	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
		ttl := tokenCmd.Duration("ttl", 24*time.Hour, "How long the token stays valid")
		_ = tokenCmd.Parse(os.Args[2:])
		if tokenCmd.NArg() < 1 {
			log.Fatal("Usage: meal-coach token [-ttl 24h] <user-id>")
		}
		if err := cfg.RequireAPI(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		token, err := httpapi.NewToken([]byte(cfg.JWTSecret), tokenCmd.Arg(0), *ttl)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Println(token)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-coach <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  expire-sessions            Mark overdue planning sessions as expired")
	fmt.Println("  metrics-cleanup [-days N]  Remove old metric records")
	fmt.Println("  learn <user-id>            Recompute learned preferences from confirmed plans")
	fmt.Println("  token [-ttl D] <user-id>   Sign an API token for a user")
}
