// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx pool behind the reading store
// (STORE_DRIVER=postgres).
//
// # Session Settings
//
// Completion and forced reset hold a row lock on the request while they run.
// Every connection gets a lock_timeout below the HTTP deadline and an
// idle-in-transaction timeout.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tikkun/internal/platform/constants"
)

const (
	// defaultMaxConns applies unless the DSN sets pool_max_conns.
	defaultMaxConns = 20
	// defaultMinConns applies unless the DSN sets pool_min_conns.
	defaultMinConns = 2

	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second

	// lockTimeout bounds the wait for the request row lock.
	lockTimeout = 5 * time.Second
	// idleInTransactionTimeout reclaims sessions abandoned mid-transaction.
	idleInTransactionTimeout = 30 * time.Second
)

// NewPool creates and validates the connection pool.
//
// # Parameters
//   - ctx: Context for the initial connection attempt.
//   - dsn: A libpq-compatible connection string or postgres:// URL.
//   - logger: Structured logger for pool-level events.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := Config(dsn)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
	)

	return pool, nil
}

// Config parses dsn and applies the reading service's pool and session settings.
//
// Pool sizes given in the DSN (pool_max_conns, pool_min_conns) win over the defaults.
func Config(dsn string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	if !dsnSets(dsn, "pool_max_conns") {
		poolConfig.MaxConns = defaultMaxConns
	}
	if !dsnSets(dsn, "pool_min_conns") {
		poolConfig.MinConns = defaultMinConns
	}
	if poolConfig.MinConns > poolConfig.MaxConns {
		poolConfig.MinConns = poolConfig.MaxConns
	}

	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	// Sent in the startup packet, so no extra round trip per connection.
	params := poolConfig.ConnConfig.RuntimeParams
	params["application_name"] = constants.AppName
	params["statement_timeout"] = milliseconds(constants.GlobalRequestTimeout)
	params["lock_timeout"] = milliseconds(lockTimeout)
	params["idle_in_transaction_session_timeout"] = milliseconds(idleInTransactionTimeout)

	return poolConfig, nil
}

// Ping verifies that the pool can reach the database.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}

func milliseconds(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// dsnSets reports whether the DSN names key, in URL or keyword/value form.
func dsnSets(dsn, key string) bool {
	if strings.HasPrefix(dsn, key+"=") {
		return true
	}
	for _, separator := range []string{"?", "&", " "} {
		if strings.Contains(dsn, separator+key+"=") {
			return true
		}
	}
	return false
}
