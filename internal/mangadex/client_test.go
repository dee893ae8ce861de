// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mangadex_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/torikomi/internal/mangadex"
)

// testOptions returns client options tuned for fast tests: effectively no
// rate limiting, minimal jitter and backoff.
func testOptions(baseURL string) mangadex.Options {
	return mangadex.Options{
		BaseURL:           baseURL,
		RequestsPerSecond: 10000,
		Burst:             100,
		MaxRetries:        3,
		RetryBackoff:      time.Millisecond,
		JitterMin:         time.Millisecond,
		JitterMax:         2 * time.Millisecond,
		Timeout:           5 * time.Second,
	}
}

func mangaRecord(id, title, createdAt string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"attributes": {
			"title": {"en": %q},
			"status": "ongoing",
			"createdAt": %q,
			"updatedAt": %q
		},
		"relationships": []
	}`, id, title, createdAt, createdAt)
}

func mangaPage(total int, records ...string) string {
	return fmt.Sprintf(`{"result":"ok","total":%d,"data":[%s]}`,
		total, strings.Join(records, ","))
}

/*
TestListManga_PaginationTermination tests that a page yielding zero unseen
ids ends the walk with exactly the earlier pages' records.
*/
func TestListManga_PaginationTermination(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)
		writer.Header().Set("Content-Type", "application/json")

		// Every page repeats the same ids; the walk must stop at page 2.
		fmt.Fprint(writer, mangaPage(2,
			mangaRecord("m1", "First", "2024-01-01T00:00:00+00:00"),
			mangaRecord("m2", "Second", "2024-01-02T00:00:00+00:00"),
		))
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	mangas, err := client.ListManga(context.Background(), true, 0)

	require.NoError(t, err)
	require.Len(t, mangas, 2)
	assert.Equal(t, "m1", mangas[0].ID)
	assert.Equal(t, "m2", mangas[1].ID)
	assert.Equal(t, int32(2), calls.Load(), "walk should stop after the all-seen page")
}

/*
TestListManga_CursorAdvances tests that full-crawl pagination advances the
creation-time cursor past the newest record of each page.
*/
func TestListManga_CursorAdvances(t *testing.T) {
	var cursors []string
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		cursors = append(cursors, request.URL.Query().Get("createdAtSince"))
		page := len(cursors)
		mu.Unlock()

		writer.Header().Set("Content-Type", "application/json")
		if page == 1 {
			fmt.Fprint(writer, mangaPage(3,
				mangaRecord("m1", "First", "2024-01-01T00:00:00+00:00"),
				mangaRecord("m2", "Second", "2024-01-02T00:00:00+00:00"),
			))
			return
		}
		fmt.Fprint(writer, mangaPage(3,
			mangaRecord("m3", "Third", "2024-01-03T00:00:00+00:00"),
		))
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	mangas, err := client.ListManga(context.Background(), true, 0)

	require.NoError(t, err)
	require.Len(t, mangas, 3)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(cursors), 2)
	assert.Empty(t, cursors[0], "first page carries no cursor")
	assert.Equal(t, "2024-01-02T00:00:01", cursors[1], "cursor is one second past the newest createdAt")
}

/*
TestListManga_PartialOnFailure tests that a page failing after retries
degrades the walk to the records already accumulated.
*/
func TestListManga_PartialOnFailure(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if calls.Add(1) == 1 {
			writer.Header().Set("Content-Type", "application/json")
			fmt.Fprint(writer, mangaPage(200,
				mangaRecord("m1", "Only", "2024-01-01T00:00:00+00:00"),
			))
			return
		}
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	mangas, err := client.ListManga(context.Background(), true, 0)

	require.NoError(t, err, "a failed walk is a partial result, not an error")
	require.Len(t, mangas, 1)
	assert.Equal(t, "m1", mangas[0].ID)
}

/*
TestGetJSON_RetriesTransientFailures tests that 5xx responses are retried
with the configured bound and the walk succeeds once upstream recovers.
*/
func TestGetJSON_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if calls.Add(1) <= 2 {
			writer.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"result":"ok","baseUrl":"https://cdn.example","chapter":{"hash":"abc","data":["1.png","2.png"]}}`)
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	images, err := client.ImageURLs(context.Background(), []string{"ch1"}, 2)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{
		"https://cdn.example/data/abc/1.png",
		"https://cdn.example/data/abc/2.png",
	}, images["ch1"])
}

/*
TestImageURLs_SkipsFailedChapters tests that a chapter failing all retries is
absent from the result while the others resolve.
*/
func TestImageURLs_SkipsFailedChapters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if strings.HasSuffix(request.URL.Path, "/bad") {
			writer.WriteHeader(http.StatusInternalServerError)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"result":"ok","baseUrl":"https://cdn.example","chapter":{"hash":"h","data":["p.png"]}}`)
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	images, err := client.ImageURLs(context.Background(), []string{"good", "bad"}, 2)

	require.NoError(t, err)
	assert.Contains(t, images, "good")
	assert.NotContains(t, images, "bad")
}

/*
TestChapterFeeds_BoundedConcurrency tests that feed fetches never exceed the
configured worker limit in flight.
*/
func TestChapterFeeds_BoundedConcurrency(t *testing.T) {
	const workers = 3

	var inFlight, maxInFlight atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			observed := maxInFlight.Load()
			if current <= observed || maxInFlight.CompareAndSwap(observed, current) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)
		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprint(writer, `{"result":"ok","total":1,"data":[{
			"id":"ch1",
			"attributes":{"chapter":"1","translatedLanguage":"en","pages":10,"createdAt":"2024-01-01T00:00:00+00:00"}
		}]}`)
	}))
	defer server.Close()

	mangaIDs := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}

	client := mangadex.NewClient(testOptions(server.URL))
	feeds, err := client.ChapterFeeds(context.Background(), mangaIDs, workers, false, 72*time.Hour)

	require.NoError(t, err)
	assert.Len(t, feeds, len(mangaIDs))
	assert.LessOrEqual(t, maxInFlight.Load(), int32(workers))

	for _, mangaID := range mangaIDs {
		require.Len(t, feeds[mangaID], 1)
		assert.Equal(t, mangaID, feeds[mangaID][0].MangaID)
		assert.Equal(t, "1", feeds[mangaID][0].Number)
	}
}

/*
TestChapterFeeds_FullModePagesToTotal tests that a full walk keeps paging
until the reported total is covered.
*/
func TestChapterFeeds_FullModePagesToTotal(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		offset := request.URL.Query().Get("offset")
		calls.Add(1)
		writer.Header().Set("Content-Type", "application/json")

		chapterNumber := "1"
		if offset != "0" {
			chapterNumber = "2"
		}
		fmt.Fprintf(writer, `{"result":"ok","total":600,"data":[{
			"id":"ch-%s",
			"attributes":{"chapter":%q,"translatedLanguage":"en","pages":5,"createdAt":"2024-01-01T00:00:00+00:00"}
		}]}`, chapterNumber, chapterNumber)
	}))
	defer server.Close()

	client := mangadex.NewClient(testOptions(server.URL))
	feeds, err := client.ChapterFeeds(context.Background(), []string{"p1"}, 1, true, 0)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "600 total at 500 per page needs two pages")
	assert.Len(t, feeds["p1"], 2)
}
