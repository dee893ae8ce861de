// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mangadex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/platform/constants"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

/*
ChapterFeeds fetches the chapter feed of every given manga concurrently.

Description: Per-manga walks run on a bounded worker group so at most the
configured number of requests is in flight at once. Inside one walk the feed
is paged by offset; full mode pages until the reported total is covered,
incremental mode restricts the feed to the look-back window and stops at the
first short page. A manga whose walk fails after retries contributes what it
accumulated; the other feeds are unaffected.

Parameters:
  - ctx: Carries the cycle logger and cancellation.
  - mangaIDs: Parents whose feeds to fetch, in any order.
  - workers: In-flight request bound across all walks.
  - full: Whole-feed vs look-back-window paging.
  - lookback: Incremental window size; ignored in full mode.

Returns:
  - map[string][]catalog.Chapter: Feed entries keyed by manga id.
  - error: Only context cancellation.
*/
func (client *Client) ChapterFeeds(ctx context.Context, mangaIDs []string, workers int, full bool, lookback time.Duration) (map[string][]catalog.Chapter, error) {

	feeds := make(map[string][]catalog.Chapter, len(mangaIDs))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	windowStart := time.Now().UTC().Add(-lookback)

	for _, mangaID := range mangaIDs {
		group.Go(func() error {
			chapters := client.walkFeed(groupCtx, mangaID, full, windowStart)
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}

			mu.Lock()
			feeds[mangaID] = chapters
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return feeds, err
	}
	return feeds, nil
}

// walkFeed pages through one manga's feed, degrading to a partial slice on
// persistent upstream failure.
func (client *Client) walkFeed(ctx context.Context, mangaID string, full bool, windowStart time.Time) []catalog.Chapter {
	logger := ctxutil.GetLogger(ctx)

	var chapters []catalog.Chapter
	offset := 0
	total := -1

	for {
		requestURL := client.feedPageURL(mangaID, full, windowStart, offset)

		var response chapterFeedResponse
		if err := client.getJSON(ctx, requestURL, &response); err != nil {
			logger.Warn("chapter_feed_aborted",
				slog.String("manga_id", mangaID),
				slog.Int("collected", len(chapters)),
				slog.String("error", err.Error()))
			return chapters
		}

		if len(response.Data) == 0 {
			break
		}
		if total < 0 {
			total = response.Total
		}

		for _, record := range response.Data {
			chapters = append(chapters, record.toChapter(mangaID))
		}

		offset += constants.ChapterFeedPageLimit
		if full {
			if offset >= total {
				break
			}
		} else if len(response.Data) < constants.ChapterFeedPageLimit {
			break
		}

		if err := client.pageJitter(ctx); err != nil {
			return chapters
		}
	}

	return chapters
}

// feedPageURL renders one feed page request.
func (client *Client) feedPageURL(mangaID string, full bool, windowStart time.Time, offset int) string {
	values := url.Values{}
	values.Set("limit", fmt.Sprint(constants.ChapterFeedPageLimit))
	values.Set("offset", fmt.Sprint(offset))

	if !full {
		values.Set("createdAtSince", windowStart.Format(cursorLayout))
		values.Set("order[chapter]", "asc")
	}

	return client.baseURL + "/manga/" + mangaID + "/feed?" + values.Encode()
}
