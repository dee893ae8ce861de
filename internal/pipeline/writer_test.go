// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/pipeline"
)

/*
TestWriter_AppliesAllFourSteps tests the forward pass: manga rows, chapter
rows, document inserts, document deletes, with accurate summary counts.
*/
func TestWriter_AppliesAllFourSteps(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	existing := seedManga(db, "E", catalog.StatusOngoing)
	db.chapters["old"] = catalog.Chapter{ID: "old", MangaID: "E", Number: "3", Lang: "de", Pages: 7}
	images := newFakeImageStore()
	images.docs["old"] = []string{"stale.png"}

	manager := pipeline.NewManager(&fakeFactory{db: db}, images)
	require.NoError(t, manager.Begin(ctx))

	existing.Status = catalog.StatusCompleted
	mangaCS := catalog.MangaChangeSet{
		Add:    []catalog.Manga{{ID: "N", Title: "Brand New", Status: catalog.StatusOngoing}},
		Update: []catalog.Manga{existing},
	}
	chapterCS := catalog.ChapterChangeSet{
		Add: []catalog.Chapter{{ID: "c1", MangaID: "N", Number: "1", Lang: "en", Pages: 4}},
		Replace: []catalog.Replacement{{
			OldID:   "old",
			Chapter: catalog.Chapter{ID: "new", MangaID: "E", Number: "3", Lang: "en", Pages: 9},
		}},
		Superseded: []string{"old"},
	}
	payloads := map[string][]string{
		"c1":  {"c1-1.png"},
		"new": {"new-1.png"},
	}

	summary, err := pipeline.NewWriter(manager).Apply(ctx, mangaCS, chapterCS, payloads)
	require.NoError(t, err)
	require.NoError(t, manager.Commit(ctx))

	assert.Equal(t, 1, summary.MangaAdded)
	assert.Equal(t, 1, summary.MangaUpdated)
	assert.Equal(t, 1, summary.ChaptersAdded)
	assert.Equal(t, 1, summary.ChaptersReplaced)
	assert.Equal(t, 2, summary.ImagesInserted)
	assert.Equal(t, 1, summary.ImagesDeleted)
	assert.Equal(t, []string{"Brand New"}, summary.SampleTitles)

	assert.Equal(t, catalog.StatusCompleted, db.mangas["E"].Status)
	assert.Contains(t, db.mangas, "N")
	assert.Contains(t, db.chapters, "c1")
	assert.Contains(t, db.chapters, "new")
	assert.NotContains(t, db.chapters, "old")
	assert.Equal(t, []string{"c1-1.png"}, images.docs["c1"])
	assert.Equal(t, []string{"new-1.png"}, images.docs["new"])
	assert.NotContains(t, images.docs, "old")
}

/*
TestWriter_DuplicateInsertGuard tests that a document left behind by a
previous partial run is neither rewritten nor counted.
*/
func TestWriter_DuplicateInsertGuard(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	images := newFakeImageStore()
	images.docs["c1"] = []string{"from-previous-run.png"}

	manager := pipeline.NewManager(&fakeFactory{db: db}, images)
	require.NoError(t, manager.Begin(ctx))

	chapterCS := catalog.ChapterChangeSet{
		Add: []catalog.Chapter{
			{ID: "c1", MangaID: "M", Number: "1", Lang: "en", Pages: 3},
			{ID: "c2", MangaID: "M", Number: "2", Lang: "en", Pages: 3},
		},
	}
	payloads := map[string][]string{
		"c1": {"would-overwrite.png"},
		"c2": {"fresh.png"},
	}

	summary, err := pipeline.NewWriter(manager).Apply(ctx, catalog.MangaChangeSet{}, chapterCS, payloads)
	require.NoError(t, err)
	require.NoError(t, manager.Commit(ctx))

	assert.Equal(t, 1, summary.ImagesInserted, "only the missing document is written")
	assert.Equal(t, []string{"from-previous-run.png"}, images.docs["c1"], "existing document untouched")
	assert.Equal(t, []string{"fresh.png"}, images.docs["c2"])
}

/*
TestWriter_SkipsPagelessPayloads tests that chapters without fetched
payloads produce no document writes.
*/
func TestWriter_SkipsPagelessPayloads(t *testing.T) {
	ctx := context.Background()
	images := newFakeImageStore()

	manager := pipeline.NewManager(&fakeFactory{db: newFakeDB()}, images)
	require.NoError(t, manager.Begin(ctx))

	chapterCS := catalog.ChapterChangeSet{
		Add: []catalog.Chapter{
			{ID: "no-payload", MangaID: "M", Number: "1", Lang: "en", Pages: 5},
			{ID: "zero-pages", MangaID: "M", Number: "2", Lang: "en", Pages: 0},
		},
	}

	summary, err := pipeline.NewWriter(manager).Apply(ctx, catalog.MangaChangeSet{}, chapterCS, map[string][]string{})
	require.NoError(t, err)
	require.NoError(t, manager.Commit(ctx))

	assert.Zero(t, summary.ImagesInserted)
	assert.Empty(t, images.docs)
}

/*
TestWriter_FailureLeavesDecisionToCaller tests that the writer reports the
failing step without attempting any compensation itself.
*/
func TestWriter_FailureLeavesDecisionToCaller(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	images := newFakeImageStore()
	images.failInsertFor["c1"] = true

	manager := pipeline.NewManager(&fakeFactory{db: db}, images)
	require.NoError(t, manager.Begin(ctx))

	chapterCS := catalog.ChapterChangeSet{
		Add: []catalog.Chapter{{ID: "c1", MangaID: "M", Number: "1", Lang: "en", Pages: 3}},
	}
	payloads := map[string][]string{"c1": {"u.png"}}

	summary, err := pipeline.NewWriter(manager).Apply(ctx, catalog.MangaChangeSet{}, chapterCS, payloads)
	require.Error(t, err)
	assert.Nil(t, summary)

	// The chapter row write went through on the still-open session; only a
	// caller-driven rollback undoes it.
	require.NoError(t, manager.Rollback(ctx))
	assert.NotContains(t, db.chapters, "c1")
}
