// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	notFound := apperr.NotFound("Request")

	assert.NoError(t, dberr.Wrap(nil, "find", notFound))
	assert.Same(t, notFound, dberr.Wrap(pgx.ErrNoRows, "find", notFound))
	assert.Same(t, notFound, dberr.Wrap(fmt.Errorf("scan: %w", sql.ErrNoRows), "find", notFound))

	forbidden := apperr.Forbidden("no")
	assert.Same(t, forbidden, dberr.Wrap(forbidden, "find", notFound))

	wrapped := apperr.As(dberr.Wrap(errors.New("boom"), "find request", notFound))
	require.NotNil(t, wrapped)
	assert.Equal(t, "INTERNAL_ERROR", wrapped.Code)
	assert.Contains(t, wrapped.Cause.Error(), "find request")
}
