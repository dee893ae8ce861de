// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mangadex implements the rate-limited source crawler.

It walks the upstream catalogue page by page under a token-bucket request
budget, retries transient failures with fixed backoff, and degrades to
partial results rather than failing a page-walk outright: callers treat a
short or empty result as "nothing new", never as an error.

# Crawl Modes

A full crawl paginates by an ascending creation-time cursor, which stays
complete even while new titles are inserted upstream mid-walk. An
incremental crawl paginates by descending offset inside a fixed look-back
window, which catches both new and recently edited records cheaply.
*/
package mangadex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/torikomi/internal/platform/constants"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// cursorLayout is the timestamp format upstream accepts in since-parameters.
// It carries no zone; values are always rendered in UTC.
const cursorLayout = "2006-01-02T15:04:05"

// Options tunes the client. Zero fields fall back to the crawl constants, so
// production call sites pass only the base URL.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryBackoff      time.Duration
	JitterMin         time.Duration
	JitterMax         time.Duration
	Timeout           time.Duration
}

func (o Options) withDefaults() Options {
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = constants.SourceRateLimitRPS
	}
	if o.Burst == 0 {
		o.Burst = constants.SourceRateLimitBurst
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = constants.SourceMaxRetries
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = constants.SourceRetryBackoff
	}
	if o.JitterMin == 0 {
		o.JitterMin = constants.SourcePageJitterMin
	}
	if o.JitterMax == 0 {
		o.JitterMax = constants.SourcePageJitterMax
	}
	if o.Timeout == 0 {
		o.Timeout = constants.SourceRequestTimeout
	}
	return o
}

// Client talks to the source API. All requests flow through one shared token
// bucket regardless of which worker issues them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	jitterMin  time.Duration
	jitterMax  time.Duration
}

// NewClient constructs a source client.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		jitterMin:  opts.JitterMin,
		jitterMax:  opts.JitterMax,
	}
}

/*
getJSON performs one rate-limited GET and decodes the response body.

Description: Waits on the shared token bucket before every attempt. Network
errors, HTTP 429 and 5xx responses are retried with fixed backoff up to the
configured attempt count; other statuses fail immediately since retrying them
cannot succeed.

Parameters:
  - ctx: Cancels both the bucket wait and the request.
  - url: Fully rendered request URL.
  - out: Decode target.

Returns:
  - error: The last attempt's failure once retries are exhausted.
*/
func (client *Client) getJSON(ctx context.Context, url string, out any) error {
	logger := ctxutil.GetLogger(ctx)

	var lastErr error
	for attempt := 1; attempt <= client.maxRetries; attempt++ {
		if err := client.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("mangadex: rate limiter wait: %w", err)
		}

		lastErr = client.tryGetJSON(ctx, url, out)
		if lastErr == nil {
			return nil
		}

		var httpErr *statusError
		if errors.As(lastErr, &httpErr) && !httpErr.retryable() {
			return lastErr
		}

		logger.Warn("source_request_retrying",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))

		if attempt < client.maxRetries {
			if err := sleepCtx(ctx, client.backoff); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("mangadex: request failed after %d attempts: %w", client.maxRetries, lastErr)
}

// tryGetJSON performs a single attempt.
func (client *Client) tryGetJSON(ctx context.Context, url string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("mangadex: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("mangadex: request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return &statusError{code: response.StatusCode, url: url}
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("mangadex: decode response: %w", err)
	}
	return nil
}

// pageJitter sleeps a random interval between successive pages of the same
// walk, so bursts of sequential pages do not trip upstream limiting.
func (client *Client) pageJitter(ctx context.Context) error {
	span := client.jitterMax - client.jitterMin
	delay := client.jitterMin
	if span > 0 {
		delay += time.Duration(rand.Int64N(int64(span)))
	}
	return sleepCtx(ctx, delay)
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError is a non-200 upstream response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("mangadex: unexpected status %d for %s", e.code, e.url)
}

// retryable reports whether the status is worth another attempt.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}
