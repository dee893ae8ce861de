// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, pagination sizes, and cross-cutting
keys that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the stats API server.
  - Rate Limiting: Inbound per-IP buckets and the outbound source budget.
  - Crawling: Page sizes, retry bounds, and jitter windows for the fetcher.
  - Storage: Schema names and Redis key taxonomy.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "torikomi"
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

// # Inbound Rate Limiting (stats API)

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Upstream Crawling

const (
	// SourceRateLimitRPS is the outbound request budget against the source
	// API. The upstream enforces 5 req/s per connection; stay under it.
	SourceRateLimitRPS = 4.0

	// SourceRateLimitBurst is the outbound token bucket depth.
	SourceRateLimitBurst = 4

	// SourceRequestTimeout caps a single upstream round-trip.
	SourceRequestTimeout = 15 * time.Second

	// SourceMaxRetries bounds retry attempts for a transient upstream failure.
	SourceMaxRetries = 3

	// SourceRetryBackoff is the fixed delay between retry attempts.
	SourceRetryBackoff = 2 * time.Second

	// SourcePageJitterMin and SourcePageJitterMax bound the random delay
	// inserted between successive pages of one walk.
	SourcePageJitterMin = 150 * time.Millisecond
	SourcePageJitterMax = 350 * time.Millisecond

	// MangaPageLimit is the page size for manga listing requests.
	MangaPageLimit = 100

	// ChapterFeedPageLimit is the page size for per-manga chapter feeds.
	ChapterFeedPageLimit = 500
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaCatalog = "catalog"
)

// # Redis Prefixes (Document Taxonomy)

const (
	// RedisPrefixImages keys one image document per chapter id.
	RedisPrefixImages = "catalog:images:"
)

// # Document Store Batching

const (
	// ImageBatchSize is the number of documents per bulk pipeline submission.
	ImageBatchSize = 500

	// ImageBatchWorkers bounds parallel bulk submissions.
	ImageBatchWorkers = 4
)
