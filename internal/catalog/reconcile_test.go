// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/torikomi/internal/catalog"
)

func mangaFixture(id, title string, status catalog.Status, updatedAt time.Time) catalog.Manga {
	return catalog.Manga{
		ID:        id,
		Title:     title,
		Slug:      title,
		Status:    status,
		UpdatedAt: updatedAt,
	}
}

/*
TestReconcileManga_Classification tests the new/updated/unchanged split.
*/
func TestReconcileManga_Classification(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	existing := map[string]catalog.MangaState{
		"same":   {Status: catalog.StatusOngoing, UpdatedAt: base},
		"status": {Status: catalog.StatusOngoing, UpdatedAt: base},
		"newer":  {Status: catalog.StatusOngoing, UpdatedAt: base},
		"genres": {Status: catalog.StatusOngoing, UpdatedAt: base, Genres: []string{"action"}},
		"older":  {Status: catalog.StatusOngoing, UpdatedAt: base},
	}

	fetched := []catalog.Manga{
		mangaFixture("fresh", "Fresh", catalog.StatusOngoing, base),
		mangaFixture("same", "Same", catalog.StatusOngoing, base),
		mangaFixture("status", "Status", catalog.StatusCompleted, base),
		mangaFixture("newer", "Newer", catalog.StatusOngoing, base.Add(time.Hour)),
		{ID: "genres", Title: "Genres", Status: catalog.StatusOngoing, UpdatedAt: base, Genres: []string{"action", "drama"}},
		mangaFixture("older", "Older", catalog.StatusOngoing, base.Add(-time.Hour)),
	}

	cs := catalog.ReconcileManga(ctx, fetched, existing)

	require.Len(t, cs.Add, 1)
	assert.Equal(t, "fresh", cs.Add[0].ID)

	updatedIDs := make([]string, 0, len(cs.Update))
	for _, m := range cs.Update {
		updatedIDs = append(updatedIDs, m.ID)
	}
	assert.ElementsMatch(t, []string{"status", "newer", "genres"}, updatedIDs)
}

/*
TestReconcileManga_SkipUnchanged tests that an identical record produces zero
writes, including when the fetched timestamp is not strictly newer.
*/
func TestReconcileManga_SkipUnchanged(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	existing := map[string]catalog.MangaState{
		"m1": {Status: catalog.StatusOngoing, UpdatedAt: base},
	}
	fetched := []catalog.Manga{
		mangaFixture("m1", "Title", catalog.StatusOngoing, base),
	}

	cs := catalog.ReconcileManga(ctx, fetched, existing)
	assert.True(t, cs.Empty())
}

/*
TestReconcileManga_IdempotentRefetch tests that reconciling the same payload
twice yields an empty change set the second time.
*/
func TestReconcileManga_IdempotentRefetch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	fetched := []catalog.Manga{
		mangaFixture("m1", "One", catalog.StatusOngoing, base),
		mangaFixture("m2", "Two", catalog.StatusCompleted, base),
	}

	// First pass against an empty catalogue
	first := catalog.ReconcileManga(ctx, fetched, map[string]catalog.MangaState{})
	require.Len(t, first.Add, 2)

	// Simulate the first pass having been applied
	existing := make(map[string]catalog.MangaState)
	for _, m := range first.Add {
		existing[m.ID] = catalog.MangaState{Status: m.Status, UpdatedAt: m.UpdatedAt, Genres: m.Genres}
	}

	second := catalog.ReconcileManga(ctx, fetched, existing)
	assert.True(t, second.Empty())
}

/*
TestReconcileManga_SkipsMalformed tests that records without id or title are
dropped without failing the batch.
*/
func TestReconcileManga_SkipsMalformed(t *testing.T) {
	ctx := context.Background()

	fetched := []catalog.Manga{
		{ID: "", Title: "No ID"},
		{ID: "no-title", Title: ""},
		mangaFixture("ok", "OK", catalog.StatusOngoing, time.Now()),
	}

	cs := catalog.ReconcileManga(ctx, fetched, map[string]catalog.MangaState{})
	require.Len(t, cs.Add, 1)
	assert.Equal(t, "ok", cs.Add[0].ID)
}

func chapterFixture(id, mangaID, number, lang string, pages int) catalog.Chapter {
	return catalog.Chapter{
		ID:      id,
		MangaID: mangaID,
		Number:  number,
		Lang:    lang,
		Pages:   pages,
	}
}

/*
TestReconcileChapters_LanguageSupersession tests that a preferred-language
arrival replaces a stored non-preferred row: exactly one canonical chapter
per slot, one superseded id for the payload delete, and the replacement id
slated for the payload insert.
*/
func TestReconcileChapters_LanguageSupersession(t *testing.T) {
	ctx := context.Background()

	existing := map[catalog.ChapterKey]catalog.ChapterRef{
		{MangaID: "P", Number: "5"}: {ID: "A", Lang: "pl"},
	}
	fetched := []catalog.Chapter{
		chapterFixture("B", "P", "5", "en", 20),
	}

	cs := catalog.ReconcileChapters(ctx, fetched, existing, "en")

	assert.Empty(t, cs.Add)
	require.Len(t, cs.Replace, 1)
	assert.Equal(t, "A", cs.Replace[0].OldID)
	assert.Equal(t, "B", cs.Replace[0].Chapter.ID)

	// Exactly one payload delete and one payload insert
	assert.Equal(t, []string{"A"}, cs.Superseded)
	assert.Equal(t, []string{"B"}, cs.FetchIDs())
}

/*
TestReconcileChapters_PreferredHolderKept tests that a slot already held in
the preferred language ignores other-language arrivals.
*/
func TestReconcileChapters_PreferredHolderKept(t *testing.T) {
	ctx := context.Background()

	existing := map[catalog.ChapterKey]catalog.ChapterRef{
		{MangaID: "P", Number: "5"}: {ID: "A", Lang: "en"},
	}
	fetched := []catalog.Chapter{
		chapterFixture("B", "P", "5", "fr", 20),
	}

	cs := catalog.ReconcileChapters(ctx, fetched, existing, "en")
	assert.True(t, cs.Empty())
	assert.Empty(t, cs.Superseded)
}

/*
TestReconcileChapters_SameIDUnchanged tests that an already-mirrored chapter
produces no writes on re-fetch.
*/
func TestReconcileChapters_SameIDUnchanged(t *testing.T) {
	ctx := context.Background()

	existing := map[catalog.ChapterKey]catalog.ChapterRef{
		{MangaID: "P", Number: "5"}: {ID: "A", Lang: "en"},
	}
	fetched := []catalog.Chapter{
		chapterFixture("A", "P", "5", "en", 20),
	}

	cs := catalog.ReconcileChapters(ctx, fetched, existing, "en")
	assert.True(t, cs.Empty())
}

/*
TestReconcileChapters_InFeedTieBreak tests that when one page-walk carries
several language variants for the same slot, the preferred language wins
regardless of arrival order.
*/
func TestReconcileChapters_InFeedTieBreak(t *testing.T) {
	ctx := context.Background()

	fetched := []catalog.Chapter{
		chapterFixture("fr1", "P", "5", "fr", 18),
		chapterFixture("en1", "P", "5", "en", 20),
		chapterFixture("de1", "P", "5", "de", 19),
	}

	cs := catalog.ReconcileChapters(ctx, fetched, map[catalog.ChapterKey]catalog.ChapterRef{}, "en")

	require.Len(t, cs.Add, 1)
	assert.Equal(t, "en1", cs.Add[0].ID)
}

/*
TestReconcileChapters_FirstVariantWithoutPreferred tests that absent a
preferred-language variant the first-seen variant holds the slot.
*/
func TestReconcileChapters_FirstVariantWithoutPreferred(t *testing.T) {
	ctx := context.Background()

	fetched := []catalog.Chapter{
		chapterFixture("fr1", "P", "5", "fr", 18),
		chapterFixture("de1", "P", "5", "de", 19),
	}

	cs := catalog.ReconcileChapters(ctx, fetched, map[catalog.ChapterKey]catalog.ChapterRef{}, "en")

	require.Len(t, cs.Add, 1)
	assert.Equal(t, "fr1", cs.Add[0].ID)
}

/*
TestChapterChangeSet_FetchIDs tests the positive-page gate on image fetching.
*/
func TestChapterChangeSet_FetchIDs(t *testing.T) {
	cs := catalog.ChapterChangeSet{
		Add: []catalog.Chapter{
			chapterFixture("with-pages", "P", "1", "en", 12),
			chapterFixture("no-pages", "P", "2", "en", 0),
		},
		Replace: []catalog.Replacement{
			{OldID: "old", Chapter: chapterFixture("replacement", "P", "3", "en", 9)},
		},
	}

	assert.ElementsMatch(t, []string{"with-pages", "replacement"}, cs.FetchIDs())
}

/*
TestNormalizeStatus tests upstream status mapping.
*/
func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, catalog.StatusOngoing, catalog.NormalizeStatus("ongoing"))
	assert.Equal(t, catalog.StatusHiatus, catalog.NormalizeStatus("hiatus"))
	assert.Equal(t, catalog.StatusUnknown, catalog.NormalizeStatus("abandoned"))
	assert.Equal(t, catalog.StatusUnknown, catalog.NormalizeStatus(""))
}
