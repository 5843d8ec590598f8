// Copyright (c) 2026 Wasteland Blues. All rights reserved.

// Command api is the entry point for the Wasteland Atlas HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect storage (PostgreSQL + migrations, or the in-memory driver).
//  4. Connect Redis (optional — the feed cache degrades to passthrough).
//  5. Wire HTTP handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wastelandblues/atlas/internal/api"
	"github.com/wastelandblues/atlas/internal/core/worldmap"
	"github.com/wastelandblues/atlas/internal/platform/config"
	"github.com/wastelandblues/atlas/internal/platform/constants"
	"github.com/wastelandblues/atlas/internal/platform/migration"
	pgstore "github.com/wastelandblues/atlas/internal/platform/postgres"
	redisstore "github.com/wastelandblues/atlas/internal/platform/redis"
	"github.com/wastelandblues/atlas/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.ServiceName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.ServiceName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Admin code seed ────────────────────────────────────────────────
	// The map state singleton stores only a bcrypt hash; the plaintext from
	// config is hashed once here and never persisted.
	seedHash, err := sec.HashCode(cfg.AdminCode)
	must(log, err, "hash admin code")

	// ── 4. Storage ────────────────────────────────────────────────────────
	var (
		repo          worldmap.Repository
		checkDatabase func() error
	)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		repo = worldmap.NewPostgresRepository(pool, seedHash)
		checkDatabase = func() error {
			return pgstore.Ping(context.Background(), pool)
		}

	case config.DriverMemory:
		log.Warn("memory storage driver selected: data will not survive restarts")
		repo = worldmap.NewMemoryRepository(seedHash)
	}

	// ── 5. Redis (optional) ───────────────────────────────────────────────
	var (
		mapCache   worldmap.MapCache
		checkCache func() error
	)

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		mapCache = worldmap.NewRedisMapCache(rdb)
		checkCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
	} else {
		log.Info("no REDIS_URL configured: serving the public feed uncached")
	}

	// ── 6. Session tokens ─────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: checkDatabase,
		CheckCache:    checkCache,
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	mapService := worldmap.NewService(repo, mapCache, tokenService, log)
	mapHandler := worldmap.NewHandler(mapService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		WorldMap:  mapHandler,
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, tokenService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("fatal_startup_error",
			slog.String("while", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
