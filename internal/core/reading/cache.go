// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/tikkun/internal/platform/constants"
)

// StatsCache stores the latest [StatsSnapshot] for a short time.
//
// Entries are versioned by a generation that Invalidate advances. Get reports
// the generation it looked at, and Set stores under the generation the caller
// read before loading the snapshot, so a snapshot loaded before an
// invalidation is never served after it.
//
// A miss is reported as (nil, generation, nil). Implementations may fail; the
// service logs and falls back to the store.
type StatsCache interface {
	Get(context context.Context) (*StatsSnapshot, int64, error)
	Set(context context.Context, generation int64, snapshot *StatsSnapshot) error
	Invalidate(context context.Context) error
}

// # Redis Implementation

// RedisStatsCache keeps each generation's snapshot as JSON under its own key
// with a TTL; the generation counter itself does not expire.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache builds a cache whose entries expire after ttl.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func (cache *RedisStatsCache) Get(context context.Context) (*StatsSnapshot, int64, error) {
	generation, err := cache.client.Get(context, constants.RedisKeyStatsGeneration).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis: failed to read stats generation: %w", err)
	}

	payload, err := cache.client.Get(context, statsKey(generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis: failed to read stats: %w", err)
	}

	var snapshot StatsSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, generation, fmt.Errorf("redis: corrupt stats entry: %w", err)
	}

	return &snapshot, generation, nil
}

func (cache *RedisStatsCache) Set(context context.Context, generation int64, snapshot *StatsSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis: failed to encode stats: %w", err)
	}

	if err := cache.client.Set(context, statsKey(generation), payload, cache.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to write stats: %w", err)
	}
	return nil
}

// Invalidate advances the generation; entries of older generations are left
// to expire.
func (cache *RedisStatsCache) Invalidate(context context.Context) error {
	if err := cache.client.Incr(context, constants.RedisKeyStatsGeneration).Err(); err != nil {
		return fmt.Errorf("redis: failed to invalidate stats: %w", err)
	}
	return nil
}

func statsKey(generation int64) string {
	return constants.RedisKeyStats + ":" + strconv.FormatInt(generation, 10)
}
