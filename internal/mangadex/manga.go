// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mangadex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/platform/constants"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

/*
ListManga walks the upstream manga listing and returns the mapped records.

Description: In full mode the walk paginates by an ascending creation-time
cursor: after each page the cursor advances to one second past the newest
createdAt seen, which keeps the walk complete even while titles are inserted
upstream concurrently. In incremental mode it paginates by descending offset
bounded to the look-back window, catching new and recently created records
without touching the deep catalogue.

A seen-id set spans the whole walk; a page yielding zero unseen records
terminates it. When a page fails after retries the walk stops and whatever
accumulated so far is returned as a partial result, not an error.

Parameters:
  - ctx: Carries the cycle logger and cancellation.
  - full: Selects cursor (full) vs offset (incremental) pagination.
  - lookback: Incremental window size; ignored in full mode.

Returns:
  - []catalog.Manga: Mapped records in crawl order.
  - error: Only context cancellation; upstream failures degrade to partials.
*/
func (client *Client) ListManga(ctx context.Context, full bool, lookback time.Duration) ([]catalog.Manga, error) {
	logger := ctxutil.GetLogger(ctx)

	var collected []catalog.Manga
	seen := make(map[string]bool)

	var cursor time.Time
	windowStart := time.Now().UTC().Add(-lookback)
	offset := 0

	for page := 1; ; page++ {
		requestURL := client.mangaPageURL(full, cursor, windowStart, offset)

		var response mangaListResponse
		if err := client.getJSON(ctx, requestURL, &response); err != nil {
			if ctx.Err() != nil {
				return collected, ctx.Err()
			}
			logger.Warn("manga_walk_aborted",
				slog.Int("page", page),
				slog.Int("collected", len(collected)),
				slog.String("error", err.Error()))
			return collected, nil
		}

		if len(response.Data) == 0 {
			break
		}

		// Source-exhaustion heuristic: a page of only known ids ends the walk.
		unseen := 0
		var newestCreatedAt time.Time
		for _, record := range response.Data {
			if record.Attributes.CreatedAt.After(newestCreatedAt) {
				newestCreatedAt = record.Attributes.CreatedAt
			}
			if seen[record.ID] {
				continue
			}
			seen[record.ID] = true
			unseen++
			collected = append(collected, record.toManga())
		}
		if unseen == 0 {
			break
		}

		logger.Info("manga_page_collected",
			slog.Int("page", page),
			slog.Int("unseen", unseen),
			slog.Int("total_collected", len(collected)))

		if full {
			// Advance the cursor past everything this page covered.
			cursor = newestCreatedAt.Add(time.Second)
		} else {
			if len(response.Data) < constants.MangaPageLimit {
				break
			}
			offset += constants.MangaPageLimit
		}

		if err := client.pageJitter(ctx); err != nil {
			return collected, err
		}
	}

	return collected, nil
}

// mangaPageURL renders one listing page request.
func (client *Client) mangaPageURL(full bool, cursor, windowStart time.Time, offset int) string {
	values := url.Values{}
	values.Set("limit", fmt.Sprint(constants.MangaPageLimit))
	values.Add("includes[]", "cover_art")

	if full {
		values.Set("order[createdAt]", "asc")
		if !cursor.IsZero() {
			values.Set("createdAtSince", cursor.UTC().Format(cursorLayout))
		}
	} else {
		values.Set("order[createdAt]", "desc")
		values.Set("offset", fmt.Sprint(offset))
		values.Set("createdAtSince", windowStart.Format(cursorLayout))
	}

	return client.baseURL + "/manga?" + values.Encode()
}
