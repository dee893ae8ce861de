// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"context"
	"log/slog"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// Summary reports what an apply pass actually touched. A cycle that rolled
// back produces no summary at all; there is no partial-success report.
type Summary struct {
	MangaAdded       int      `json:"manga_added"`
	MangaUpdated     int      `json:"manga_updated"`
	ChaptersAdded    int      `json:"chapters_added"`
	ChaptersReplaced int      `json:"chapters_replaced"`
	ImagesInserted   int      `json:"images_inserted"`
	ImagesDeleted    int      `json:"images_deleted"`
	SampleTitles     []string `json:"sample_titles,omitempty"`
}

// sampleTitleLimit caps how many added titles a summary carries.
const sampleTitleLimit = 5

// Writer applies a reconciled change set across both stores, registering
// compensation with the manager before each step. The writer never decides
// to roll back; that decision belongs to its caller.
type Writer struct {
	manager *Manager
}

// NewWriter constructs a writer bound to one cycle's manager.
func NewWriter(manager *Manager) *Writer {
	return &Writer{manager: manager}
}

/*
Apply runs the four write steps in dependency order.

Description: (1) manga rows, so chapters can foreign-key them; (2) chapter
rows, inserts and in-place replacements; (3) document inserts, guarded
against documents a previous partial run already wrote; (4) document deletes
for superseded chapters. Compensation is registered immediately before each
step so the stack's pop order is the exact reverse write order, and the ids
each step actually touched are what gets registered, not the whole plan.

Parameters:
  - ctx: Carries the cycle logger.
  - mangaCS: Reconciled manga inserts and updates.
  - chapterCS: Reconciled chapter inserts, replacements, and supersessions.
  - payloads: Fetched image URL lists keyed by chapter id.

Returns:
  - *Summary: Counts of rows and documents touched.
  - error: The failing step's error; the caller must then roll back.
*/
func (writer *Writer) Apply(ctx context.Context, mangaCS catalog.MangaChangeSet, chapterCS catalog.ChapterChangeSet, payloads map[string][]string) (*Summary, error) {
	logger := ctxutil.GetLogger(ctx)
	session := writer.manager.Session()
	summary := &Summary{}

	// Step 1: manga rows.
	mangaIDs := make([]string, 0, len(mangaCS.Add)+len(mangaCS.Update))
	for _, m := range mangaCS.Add {
		mangaIDs = append(mangaIDs, m.ID)
	}
	for _, m := range mangaCS.Update {
		mangaIDs = append(mangaIDs, m.ID)
	}
	if err := writer.manager.RegisterMangaWrites(ctx, mangaIDs); err != nil {
		return nil, err
	}
	if err := session.Mangas().Insert(ctx, mangaCS.Add); err != nil {
		return nil, err
	}
	if err := session.Mangas().Update(ctx, mangaCS.Update); err != nil {
		return nil, err
	}
	summary.MangaAdded = len(mangaCS.Add)
	summary.MangaUpdated = len(mangaCS.Update)
	for _, m := range mangaCS.Add {
		if len(summary.SampleTitles) == sampleTitleLimit {
			break
		}
		summary.SampleTitles = append(summary.SampleTitles, m.Title)
	}
	logger.Info("apply_manga_written",
		slog.Int("added", summary.MangaAdded),
		slog.Int("updated", summary.MangaUpdated))

	// Step 2: chapter rows. Replaced rows are touched via their old id.
	chapterIDs := make([]string, 0, len(chapterCS.Add)+len(chapterCS.Replace))
	for _, ch := range chapterCS.Add {
		chapterIDs = append(chapterIDs, ch.ID)
	}
	for _, r := range chapterCS.Replace {
		chapterIDs = append(chapterIDs, r.OldID)
	}
	if err := writer.manager.RegisterChapterWrites(ctx, chapterIDs); err != nil {
		return nil, err
	}
	if err := session.Chapters().Insert(ctx, chapterCS.Add); err != nil {
		return nil, err
	}
	if err := session.Chapters().Replace(ctx, chapterCS.Replace); err != nil {
		return nil, err
	}
	summary.ChaptersAdded = len(chapterCS.Add)
	summary.ChaptersReplaced = len(chapterCS.Replace)
	logger.Info("apply_chapters_written",
		slog.Int("added", summary.ChaptersAdded),
		slog.Int("replaced", summary.ChaptersReplaced))

	// Step 3: document inserts, skipping chapters a previous partial run
	// already stored.
	images := writer.manager.Images()
	candidates := make([]string, 0, len(payloads))
	for _, id := range chapterCS.FetchIDs() {
		if len(payloads[id]) > 0 {
			candidates = append(candidates, id)
		}
	}
	existing, err := images.ExistingIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var sets []catalog.ImageSet
	var insertIDs []string
	for _, id := range candidates {
		if existing[id] {
			continue
		}
		insertIDs = append(insertIDs, id)
		sets = append(sets, catalog.ImageSet{ChapterID: id, Images: payloads[id]})
	}
	if err := writer.manager.RegisterImageInserts(ctx, insertIDs); err != nil {
		return nil, err
	}
	if err := images.BulkInsert(ctx, sets); err != nil {
		return nil, err
	}
	summary.ImagesInserted = len(sets)
	logger.Info("apply_images_inserted",
		slog.Int("inserted", summary.ImagesInserted),
		slog.Int("skipped_existing", len(candidates)-len(insertIDs)))

	// Step 4: document deletes for superseded chapters.
	if err := writer.manager.RegisterImageDeletes(ctx, chapterCS.Superseded); err != nil {
		return nil, err
	}
	if err := images.Delete(ctx, chapterCS.Superseded); err != nil {
		return nil, err
	}
	summary.ImagesDeleted = len(chapterCS.Superseded)
	logger.Info("apply_images_deleted",
		slog.Int("deleted", summary.ImagesDeleted))

	return summary, nil
}
