// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mangadex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

/*
ImageURLs resolves the page image URLs of the given chapters.

Description: Each chapter needs one at-home server lookup; lookups run on a
bounded worker group. A chapter whose lookup fails after retries is simply
absent from the result, so its document is skipped this cycle and picked up
by a later one. Failures are logged, never fatal.

Parameters:
  - ctx: Carries the cycle logger and cancellation.
  - chapterIDs: Chapters to resolve, in any order.
  - workers: In-flight request bound.

Returns:
  - map[string][]string: Ordered image URLs keyed by chapter id.
  - error: Only context cancellation.
*/
func (client *Client) ImageURLs(ctx context.Context, chapterIDs []string, workers int) (map[string][]string, error) {
	logger := ctxutil.GetLogger(ctx)

	images := make(map[string][]string, len(chapterIDs))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, chapterID := range chapterIDs {
		group.Go(func() error {
			urls, err := client.chapterImages(groupCtx, chapterID)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				logger.Warn("chapter_images_skipped",
					slog.String("chapter_id", chapterID),
					slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			images[chapterID] = urls
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return images, err
	}
	return images, nil
}

// chapterImages performs one at-home lookup and assembles the page URLs.
func (client *Client) chapterImages(ctx context.Context, chapterID string) ([]string, error) {
	requestURL := client.baseURL + "/at-home/server/" + chapterID

	var response atHomeResponse
	if err := client.getJSON(ctx, requestURL, &response); err != nil {
		return nil, err
	}
	if response.Result != "ok" {
		return nil, fmt.Errorf("mangadex: at-home lookup rejected for chapter %s", chapterID)
	}

	urls := make([]string, 0, len(response.Chapter.Data))
	for _, file := range response.Chapter.Data {
		urls = append(urls, fmt.Sprintf("%s/data/%s/%s", response.BaseURL, response.Chapter.Hash, file))
	}
	return urls, nil
}
