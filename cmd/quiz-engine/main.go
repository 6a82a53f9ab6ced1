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

	"github.com/guesstheplant/quiz-engine/internal/api"
	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/cleanup"
	"github.com/guesstheplant/quiz-engine/internal/config"
	"github.com/guesstheplant/quiz-engine/internal/game"
	"github.com/guesstheplant/quiz-engine/internal/storage"
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

	slog.Info("starting quiz-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Result persistence is optional: without a DSN the game runs
	// fully in memory and only the session endpoints answer 503.
	var repo storage.Repository
	if cfg.Database.DSN != "" {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pg, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN: cfg.Database.DSN,
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		repo = pg
		slog.Info("database connected successfully")
	} else {
		slog.Info("no database configured, result persistence disabled")
	}

	// Player state lives in Redis when configured, memory otherwise
	var kv storage.KeyValueStore
	if cfg.Redis.Address != "" {
		rs, err := storage.NewRedisStore(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		kv = rs
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	} else {
		kv = storage.NewMemoryStore()
		slog.Info("no redis configured, player state held in memory")
	}

	// Load the question catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Data.Dir); err != nil {
		slog.Error("failed to load catalog", "dir", cfg.Data.Dir, "error", err)
		os.Exit(1)
	}
	c := loader.Catalog()
	slog.Info("catalog loaded",
		"species", len(c.SpeciesByID),
		"plant_questions", len(c.Plants),
		"bouquet_questions", len(c.Bouquets),
		"images", c.Registry.Len(),
	)

	// Round configuration
	rounds, err := game.LoadRounds(cfg.Game.RoundsFile)
	if err != nil {
		slog.Error("failed to load round configuration", "file", cfg.Game.RoundsFile, "error", err)
		os.Exit(1)
	}

	// Create context with cancellation for background workers
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Expire abandoned sessions in the background
	if repo != nil {
		cleaner := cleanup.NewCleaner(repo, cfg.Cleanup.Interval, cfg.Cleanup.SessionMaxAge)
		cleaner.Start(runCtx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, cfg.Game, loader, repo, kv, rounds)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if repo != nil {
		if err := repo.Close(); err != nil {
			slog.Error("repository close error", "error", err)
		}
	}

	slog.Info("quiz-engine stopped")
}
