// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sqlite opens the embedded single-file database used for small or
// self-hosted deployments (STORE_DRIVER=sqlite).
//
// # Concurrency
//
// SQLite allows one writer at a time. The pool is capped at a single
// connection and every transaction starts IMMEDIATE, so allocation
// transactions are serialized instead of failing with SQLITE_BUSY mid-way.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const pingTimeout = 2 * time.Second

// connection options understood by the modernc driver.
const dsnOptions = "?_txlock=immediate" +
	"&_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)"

// Open creates (if needed) and opens the database file at path, then applies schema.
//
// schema must be idempotent (CREATE ... IF NOT EXISTS); it runs on every start.
func Open(ctx context.Context, path, schema string, logger *slog.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: exec schema: %w", err)
	}

	logger.Info("sqlite_database_opened", slog.String("path", path))

	return db, nil
}

// Ping verifies that the database is reachable.
func Ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}
