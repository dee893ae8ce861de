// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/pipeline"
)

func testRunner(source pipeline.Source, db *fakeDB, factory *fakeFactory, images *fakeImageStore) *pipeline.Runner {
	return pipeline.NewRunner(source, &fakeReader{db: db}, factory, images, pipeline.Options{
		Lookback:          72 * time.Hour,
		Workers:           4,
		PreferredLanguage: "en",
	})
}

/*
TestRunner_RunAppliesFreshCrawl tests a full cycle against an empty mirror:
everything crawled lands in both stores.
*/
func TestRunner_RunAppliesFreshCrawl(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	factory := &fakeFactory{db: db}
	images := newFakeImageStore()

	source := &fakeSource{
		mangas: []catalog.Manga{
			{ID: "m1", Title: "One", Status: catalog.StatusOngoing, UpdatedAt: time.Now().UTC()},
		},
		feeds: map[string][]catalog.Chapter{
			"m1": {
				{ID: "c1", MangaID: "m1", Number: "1", Lang: "en", Pages: 8},
				{ID: "c2", MangaID: "m1", Number: "2", Lang: "en", Pages: 0},
			},
		},
		payloads: map[string][]string{
			"c1": {"c1-1.png", "c1-2.png"},
		},
	}

	summary, err := testRunner(source, db, factory, images).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MangaAdded)
	assert.Equal(t, 2, summary.ChaptersAdded)
	assert.Equal(t, 1, summary.ImagesInserted, "page-less chapter gets no document")
	assert.Equal(t, []string{"One"}, summary.SampleTitles)

	assert.Contains(t, db.mangas, "m1")
	assert.Contains(t, db.chapters, "c1")
	assert.Contains(t, db.chapters, "c2")
	assert.Equal(t, []string{"c1-1.png", "c1-2.png"}, images.docs["c1"])
	assert.NotContains(t, images.docs, "c2")
}

/*
TestRunner_SecondRunIsNoop tests idempotent re-fetch end to end: running the
identical crawl against the state the first run committed produces an empty
summary and no writes.
*/
func TestRunner_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	factory := &fakeFactory{db: db}
	images := newFakeImageStore()

	source := &fakeSource{
		mangas: []catalog.Manga{
			{ID: "m1", Title: "One", Status: catalog.StatusOngoing, UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		},
		feeds: map[string][]catalog.Chapter{
			"m1": {{ID: "c1", MangaID: "m1", Number: "1", Lang: "en", Pages: 8}},
		},
		payloads: map[string][]string{"c1": {"c1-1.png"}},
	}
	runner := testRunner(source, db, factory, images)

	first, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.MangaAdded)
	sessionsAfterFirst := factory.begun

	second, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, &pipeline.Summary{}, second)
	assert.Equal(t, sessionsAfterFirst, factory.begun, "a no-change cycle opens no session")
}

/*
TestRunner_SupersessionReplacesAcrossStores tests the language supersession
path end to end: one canonical chapter per slot, the superseded document
removed, the replacement document inserted.
*/
func TestRunner_SupersessionReplacesAcrossStores(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	factory := &fakeFactory{db: db}
	images := newFakeImageStore()

	// Previously mirrored non-preferred chapter.
	db.mangas["P"] = catalog.Manga{ID: "P", Title: "Parent", Status: catalog.StatusOngoing,
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	db.chapters["A"] = catalog.Chapter{ID: "A", MangaID: "P", Number: "5", Lang: "pl", Pages: 18}
	images.docs["A"] = []string{"old.png"}

	source := &fakeSource{
		mangas: []catalog.Manga{db.mangas["P"]},
		feeds: map[string][]catalog.Chapter{
			"P": {{ID: "B", MangaID: "P", Number: "5", Lang: "en", Pages: 20}},
		},
		payloads: map[string][]string{"B": {"new.png"}},
	}

	summary, err := testRunner(source, db, factory, images).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ChaptersReplaced)
	assert.Equal(t, 1, summary.ImagesInserted)
	assert.Equal(t, 1, summary.ImagesDeleted)

	// Exactly one canonical chapter remains for the slot.
	assert.NotContains(t, db.chapters, "A")
	require.Contains(t, db.chapters, "B")
	assert.Equal(t, "en", db.chapters["B"].Lang)

	assert.NotContains(t, images.docs, "A")
	assert.Equal(t, []string{"new.png"}, images.docs["B"])
}

/*
TestRunner_ApplyFailureRollsBack tests that a write failure inside the apply
stage compensates both stores and surfaces the error.
*/
func TestRunner_ApplyFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	factory := &fakeFactory{db: db}
	images := newFakeImageStore()
	images.failInsertFor["c2"] = true

	source := &fakeSource{
		mangas: []catalog.Manga{
			{ID: "m1", Title: "One", Status: catalog.StatusOngoing, UpdatedAt: time.Now().UTC()},
		},
		feeds: map[string][]catalog.Chapter{
			"m1": {
				{ID: "c1", MangaID: "m1", Number: "1", Lang: "en", Pages: 8},
				{ID: "c2", MangaID: "m1", Number: "2", Lang: "en", Pages: 8},
			},
		},
		payloads: map[string][]string{
			"c1": {"c1.png"},
			"c2": {"c2.png"},
		},
	}

	summary, err := testRunner(source, db, factory, images).Run(ctx)
	require.Error(t, err)
	assert.Nil(t, summary, "a rolled-back cycle reports failure, not partial counts")

	assert.Empty(t, db.mangas)
	assert.Empty(t, db.chapters)
	assert.Empty(t, images.docs, "documents written before the failure are reversed")
}
