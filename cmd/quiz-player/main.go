package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iv91/kidslearning/internal/api"
	"github.com/Iv91/kidslearning/internal/cache"
	"github.com/Iv91/kidslearning/internal/catalog"
	"github.com/Iv91/kidslearning/internal/cleanup"
	"github.com/Iv91/kidslearning/internal/config"
	"github.com/Iv91/kidslearning/internal/content"
	"github.com/Iv91/kidslearning/internal/cue"
	"github.com/Iv91/kidslearning/internal/events"
	"github.com/Iv91/kidslearning/internal/flags"
	"github.com/Iv91/kidslearning/internal/i18n"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/services"
	"github.com/Iv91/kidslearning/internal/storage"
	"github.com/Iv91/kidslearning/internal/subscribe"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting quiz-player",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"content_api", cfg.Content.APIURL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	registry := services.NewRegistry()
	registry.SetCheckTimeout(cfg.Content.Timeout)

	// Content service
	contentClient := content.NewClient(cfg.Content.APIURL, content.WithTimeout(cfg.Content.Timeout))
	registry.Register("content", services.NewPingProvider("content", contentClient))

	// Attempt storage
	var repo storage.Repository
	if cfg.Database.DSN != "" {
		pgRepo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}

		migrations, err := storage.Migrations(cfg.Database.MigrationsDir)
		if err != nil {
			slog.Error("failed to open migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.RunMigrations(initCtx, pgRepo.Pool(), migrations); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected successfully")

		postgresProvider, err := services.NewPostgresProvider(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres provider", "error", err)
			os.Exit(1)
		}
		defer postgresProvider.Close()
		registry.Register("postgres", postgresProvider)

		repo = pgRepo
	} else {
		slog.Warn("DATABASE_DSN not set, keeping attempts in memory")
		repo = storage.NewMemoryRepository()
	}
	defer repo.Close()

	// Intro flags and catalog cache
	var (
		flagStore    flags.Store
		catalogCache cache.Service
	)
	if cfg.Redis.Address != "" {
		redisClient, err := services.NewRedisClient(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		registry.Register("redis", services.NewRedisProvider(redisClient))

		flagStore = flags.NewRedisStore(redisClient)
		catalogCache = cache.NewRedisCache(redisClient)
	} else {
		slog.Warn("REDIS_ADDRESS not set, keeping flags and catalog cache in memory")
		flagStore = flags.NewMemoryStore()
		catalogCache = cache.NewMemoryCache()
	}

	// Event publisher
	publisher, err := events.NewFromConfig(cfg.Events, logger)
	if err != nil {
		slog.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Localization
	translator, err := i18n.New(cfg.Locales.DefaultLang)
	if err != nil {
		slog.Error("failed to load locales", "error", err)
		os.Exit(1)
	}
	if cfg.Locales.Dir != "" {
		if err := translator.LoadFromDir(cfg.Locales.Dir); err != nil {
			slog.Warn("failed to load locales from dir", "dir", cfg.Locales.Dir, "error", err)
		}
	}

	// View manager
	bus := cue.NewBus()
	manager := player.NewManager(player.Options{
		Fetcher: contentClient,
		Flags:   flagStore,
		Repo:    repo,
		Events:  publisher,
		Cues:    bus,
		HomeURL: cfg.Content.HomeURL,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval, cfg.Cleanup.IdleTTL)
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Views:      manager,
		Catalog:    catalog.NewService(contentClient, catalogCache, cfg.Catalog.CacheTTL, cfg.Catalog.PageSize),
		Subscribe:  subscribe.NewService(contentClient),
		Translator: translator,
		Cues:       bus,
		Attempts:   repo,
		Registry:   registry,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// cue streams are hijacked connections; closing the bus ends them
	bus.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Wait for pending attempt records
	if err := manager.Shutdown(shutdownCtx); err != nil {
		slog.Error("view manager shutdown error", "error", err)
	}

	slog.Info("quiz-player stopped")
}
