// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/taibuivan/tikkun/internal/platform/apperr"
)

// IsNoRows reports whether err means the queried row does not exist, for either driver.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// notFound is returned as-is for a missing row so callers keep their own resource name and key.
func Wrap(err error, action string, notFound *apperr.AppError) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if IsNoRows(err) && notFound != nil {
		return notFound
	}

	// 2. Already classified errors pass through untouched
	if apperr.IsAppError(err) {
		return err
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
