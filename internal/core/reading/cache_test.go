// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	redisTC "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/taibuivan/tikkun/internal/core/reading"
	"github.com/taibuivan/tikkun/internal/platform/redis"
)

func TestRedisStatsCache(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	if testing.Short() {
		t.Skip("redis integration test skipped in short mode")
	}

	ctx := context.Background()

	container, err := redisTC.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.NewClient(ctx, url, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache := reading.NewRedisStatsCache(client, time.Minute)

	miss, generation, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Zero(t, generation)

	snapshot := &reading.StatsSnapshot{TotalRequests: 3, TotalChaptersRead: 12, TodayCount: 5, TodayDate: "2026-03-01"}
	require.NoError(t, cache.Set(ctx, generation, snapshot))

	hit, _, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot, hit)

	ttl, err := client.TTL(ctx, "reading:stats:0").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx))
	miss, generation, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, int64(1), generation)

	// A write for a generation that has since been invalidated stays invisible.
	_, stale, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, stale, snapshot))

	miss, generation, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, int64(2), generation)
}
