// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tikkun reading API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the chapter store (PostgreSQL with migrations, or embedded SQLite).
//  4. Connect to Redis when a stats cache is configured.
//  5. Load the content table.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
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
	_ "time/tzdata"

	"github.com/taibuivan/tikkun/internal/api"
	"github.com/taibuivan/tikkun/internal/auth"
	"github.com/taibuivan/tikkun/internal/core/content"
	"github.com/taibuivan/tikkun/internal/core/reading"
	"github.com/taibuivan/tikkun/internal/platform/config"
	"github.com/taibuivan/tikkun/internal/platform/constants"
	"github.com/taibuivan/tikkun/internal/platform/migration"
	pgstore "github.com/taibuivan/tikkun/internal/platform/postgres"
	redisstore "github.com/taibuivan/tikkun/internal/platform/redis"
	"github.com/taibuivan/tikkun/internal/platform/sec"
	"github.com/taibuivan/tikkun/internal/platform/sqlite"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Chapter Store ──────────────────────────────────────────────────
	var repository reading.Repository

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		repository = reading.NewPostgresRepository(pool)

	case config.DriverSQLite:
		db, err := sqlite.Open(startupCtx, cfg.SQLitePath, reading.SQLiteSchema, log)
		must(log, err, "open sqlite")
		defer func() {
			log.Info("closing_sqlite_database")
			if cerr := db.Close(); cerr != nil {
				log.Error("sqlite_close_failed", slog.Any("error", cerr))
			}
		}()

		repository = reading.NewSQLiteRepository(db)
	}

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	healthDeps := api.HealthDependencies{
		StoreName:     cfg.StoreDriver,
		CheckDatabase: repository.Ping,
	}

	var statsCache reading.StatsCache
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()

		statsCache = reading.NewRedisStatsCache(rdb, cfg.StatsCacheTTL)
		healthDeps.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	} else {
		log.Info("stats_cache_disabled")
	}

	// ── 5. Content Table ──────────────────────────────────────────────────
	catalog, err := content.Load(cfg.ChaptersPath)
	must(log, err, "load chapter catalog")
	log.Info("chapter_catalog_loaded", slog.Int("chapters", catalog.Len()))

	// ── 6. Admin Authentication ───────────────────────────────────────────
	var sessions *sec.SessionTokens
	if cfg.SessionSecret != "" {
		sessions, err = sec.NewSessionTokens(cfg.SessionSecret, constants.AuthIssuer)
		must(log, err, "initialize admin sessions")
	}
	authenticator := sec.NewAdminAuthenticator(cfg.AdminToken, cfg.AdminPasswordHash, sessions, constants.AdminSubject, cfg.AdminSessionTTL)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	readingService := reading.NewService(repository, log, reading.Options{
		Cache:    statsCache,
		Catalog:  catalog,
		Location: cfg.Location(),
	})

	liveness, readiness := api.NewHealthHandlers(healthDeps, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(auth.NewService(authenticator, log)),
		Reading:   reading.NewHandler(readingService, authenticator),
		Content:   content.NewHandler(catalog),
	}

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		return
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON process logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
