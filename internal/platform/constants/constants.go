// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Reading: Lock lifetime and identity header.
  - Security: Admin session issuer.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tikkun-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the sustained requests per second allowed per IP.
	// A reader polls next-chapter a few times a minute, so this leaves room for
	// a whole household behind one address.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the bucket size of the per-IP limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Reading

const (
	// HeaderAnonID carries the client-generated reader identity.
	HeaderAnonID = "X-Anon-ID"

	// MaxAnonIDLength bounds the identity header after trimming.
	MaxAnonIDLength = 128

	// MaxRequestIDLength bounds a client-supplied X-Request-ID; longer ones are replaced.
	MaxRequestIDLength = 64

	// MaxRequestBodyBytes caps JSON request bodies. A request with every chapter
	// index of the content table stays far below it.
	MaxRequestBodyBytes = 64 << 10

	// ChapterLockTimeout is how long a handed-out chapter stays reserved for its reader.
	ChapterLockTimeout = 20 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in admin session tokens.
	AuthIssuer = "tikkun.app"

	// AdminSubject is the 'sub' claim of every admin session token.
	AdminSubject = "admin"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Keys (Cache Taxonomy)

const (
	// RedisKeyStats prefixes the serialized statistics snapshot of each generation.
	RedisKeyStats = "reading:stats"

	// RedisKeyStatsGeneration counts invalidations of the statistics snapshot.
	RedisKeyStatsGeneration = "reading:stats:generation"
)
