// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/tikkun/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Reader Identity

// WithAnonID returns a new context carrying the anonymous reader identity.
func WithAnonID(ctx context.Context, anonID string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAnonID, anonID)
}

// GetAnonID retrieves the anonymous reader identity, or "" when absent.
func GetAnonID(ctx context.Context) string {
	anonID, _ := ctx.Value(ctxkey.KeyAnonID).(string)
	return anonID
}

// # Administration

// WithAdmin marks the context as carrying a verified admin credential.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAdmin, true)
}

// IsAdmin reports whether [WithAdmin] was applied to the context.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(ctxkey.KeyAdmin).(bool)
	return admin
}
