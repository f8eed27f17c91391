// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/constants"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

// # Rate Limiting

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	// RPS is the sustained refill rate in requests per second.
	RPS float64
	// Burst is the bucket size.
	Burst int
}

// DefaultRateLimit is used when RATE_LIMIT_RPS / RATE_LIMIT_BURST are unset.
var DefaultRateLimit = RateLimitConfig{RPS: constants.DefaultRateLimitRPS, Burst: constants.DefaultRateLimitBurst}

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP.
//
// Buckets are keyed by IP only: the reader identity is chosen by the client,
// so keying on it would let one address mint unlimited buckets.
type RateLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	clients map[string]*rateLimitClient
}

/*
NewRateLimiter creates a limiter and starts the sweep of idle clients.

Parameters:
  - context: context.Context (Stops the sweep when cancelled)
  - config: RateLimitConfig (Zero fields fall back to [DefaultRateLimit])

Returns:
  - *RateLimiter: Use [RateLimiter.Middleware] in the router chain
*/
func NewRateLimiter(context context.Context, config RateLimitConfig) *RateLimiter {
	if config.RPS <= 0 {
		config.RPS = DefaultRateLimit.RPS
	}
	if config.Burst <= 0 {
		config.Burst = DefaultRateLimit.Burst
	}

	limiter := &RateLimiter{
		config:  config,
		clients: make(map[string]*rateLimitClient),
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now)
			case <-context.Done():
				return
			}
		}
	}()

	return limiter
}

// Middleware rejects a client over its budget with a localized 429 and a
// Retry-After hint.
func (limiter *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		clientIP := RealIP(request)

		if limiter.allow(clientIP, time.Now()) {
			next.ServeHTTP(writer, request)
			return
		}

		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_exceeded",
			slog.String("ip", clientIP),
			slog.Bool("has_anon_id", readerIdentity(request) != ""),
		)

		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(limiter.retryAfterSeconds()))
		respond.Error(writer, request, apperr.TooManyRequests("Rate limit exceeded").WithKey(i18n.KeyRateLimited))
	})
}

func (limiter *RateLimiter) allow(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	client, found := limiter.clients[key]
	if !found {
		client = &rateLimitClient{limiter: rate.NewLimiter(rate.Limit(limiter.config.RPS), limiter.config.Burst)}
		limiter.clients[key] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

// sweep forgets clients idle for longer than [constants.RateLimitClientTTL].
func (limiter *RateLimiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for key, client := range limiter.clients {
		if now.Sub(client.lastSeen) > constants.RateLimitClientTTL {
			delete(limiter.clients, key)
		}
	}
}

// retryAfterSeconds is the time one token takes to refill, rounded up.
func (limiter *RateLimiter) retryAfterSeconds() int {
	return int(math.Max(1, math.Ceil(1/limiter.config.RPS)))
}
