package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/amikxn/TrialMatchAI/internal/api"
	"github.com/amikxn/TrialMatchAI/internal/config"
	"github.com/amikxn/TrialMatchAI/internal/database"
	"github.com/amikxn/TrialMatchAI/internal/review"
	"github.com/amikxn/TrialMatchAI/internal/service"
	"github.com/amikxn/TrialMatchAI/internal/store"
	"github.com/amikxn/TrialMatchAI/pkg/interpret"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithField("addr", cfg.Server.Host).Info("Starting trial matching server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store
	records, err := store.NewFileStore(cfg.Store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load record store")
	}

	// Interpretation-service client, with optional redis result cache
	var cache *redis.Client
	if cfg.Cache.Enabled {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid redis URL")
		}
		cache = redis.NewClient(opts)
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, interpretation caching disabled")
			cache = nil
		}
	}
	client := interpret.NewResilientClient(
		interpret.NewClient(cfg.Interpreter), cache, cfg.Cache.DefaultTTL, logger)

	// Review store
	var reviews review.Store
	switch cfg.Review.Backend {
	case "postgres":
		runner, err := database.NewMigrationRunner(cfg.Review.DatabaseURL, cfg.Review.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		pool, err := database.NewConnection(ctx, cfg.Review.DatabaseURL, database.DefaultPoolConfig(), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to postgres")
		}
		defer pool.Close()

		// The review store shares the pool through the database/sql adapter.
		reviews, err = review.NewPostgresStore(stdlib.OpenDBFromPool(pool.Pool))
		if err != nil {
			logger.WithError(err).Fatal("Failed to open postgres review store")
		}
	default:
		reviews, err = review.NewSQLiteStore(cfg.Review.SQLitePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open sqlite review store")
		}
	}
	defer reviews.Close()

	server := api.NewServer(*cfg, logger, api.Deps{
		Store:       records,
		Matcher:     service.NewMatcherService(logger),
		Extractor:   service.NewExtractorService(logger, service.ExtractorConfig{}),
		Interpreter: service.NewInterpreterService(logger, client),
		Reviews:     reviews,
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
