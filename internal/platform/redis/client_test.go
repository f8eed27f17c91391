// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tikkun/internal/platform/redis"
)

func TestOptions(t *testing.T) {
	options, err := redis.Options("redis://:secret@cache.internal:6380/3")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", options.Addr)
	assert.Equal(t, "secret", options.Password)
	assert.Equal(t, 3, options.DB)
	assert.Equal(t, "tikkun-api", options.ClientName)
	assert.Equal(t, 4, options.PoolSize)
	assert.Equal(t, 1, options.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, options.ReadTimeout)
	assert.True(t, options.ContextTimeoutEnabled)
	assert.Nil(t, options.TLSConfig)
}

func TestOptions_TLS(t *testing.T) {
	options, err := redis.Options("rediss://cache.internal:6380")
	require.NoError(t, err)
	assert.NotNil(t, options.TLSConfig)
}

func TestOptions_InvalidURL(t *testing.T) {
	_, err := redis.Options("http://cache.internal")
	assert.ErrorContains(t, err, "redis: invalid URL")
}
