// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// Source is the crawl surface the cycle consumes. Satisfied by the mangadex
// client; tests substitute a fake.
type Source interface {
	ListManga(ctx context.Context, full bool, lookback time.Duration) ([]catalog.Manga, error)
	ChapterFeeds(ctx context.Context, mangaIDs []string, workers int, full bool, lookback time.Duration) (map[string][]catalog.Chapter, error)
	ImageURLs(ctx context.Context, chapterIDs []string, workers int) (map[string][]string, error)
}

// Options configures one runner.
type Options struct {
	// FullCrawl walks the entire upstream catalogue instead of the
	// incremental look-back window.
	FullCrawl bool

	// Lookback is the incremental crawl window.
	Lookback time.Duration

	// Workers bounds concurrent source requests during fan-out stages.
	Workers int

	// PreferredLanguage supersedes other-language chapter variants.
	PreferredLanguage string
}

// Runner executes ingestion cycles. Each exported stage is idempotent and
// independently retryable by an external scheduler; [Runner.Run] composes
// them for standalone operation. The scheduler must keep at most one cycle
// in flight: a cycle exclusively owns its stores while it runs.
type Runner struct {
	source  Source
	reader  catalog.Reader
	factory catalog.SessionFactory
	images  catalog.ImageStore
	opts    Options
}

// NewRunner constructs a cycle runner.
func NewRunner(source Source, reader catalog.Reader, factory catalog.SessionFactory, images catalog.ImageStore, opts Options) *Runner {
	return &Runner{
		source:  source,
		reader:  reader,
		factory: factory,
		images:  images,
		opts:    opts,
	}
}

// FetchManga crawls the upstream manga listing.
func (runner *Runner) FetchManga(ctx context.Context) ([]catalog.Manga, error) {
	return runner.source.ListManga(ctx, runner.opts.FullCrawl, runner.opts.Lookback)
}

// FetchChapters crawls the chapter feeds of the given manga.
func (runner *Runner) FetchChapters(ctx context.Context, mangaIDs []string) (map[string][]catalog.Chapter, error) {
	return runner.source.ChapterFeeds(ctx, mangaIDs, runner.opts.Workers, runner.opts.FullCrawl, runner.opts.Lookback)
}

// FetchImages resolves image URLs for the given chapters.
func (runner *Runner) FetchImages(ctx context.Context, chapterIDs []string) (map[string][]string, error) {
	return runner.source.ImageURLs(ctx, chapterIDs, runner.opts.Workers)
}

// reconcile classifies the crawled batch against stored state. Pure reads;
// runs outside any session.
func (runner *Runner) reconcile(ctx context.Context, mangas []catalog.Manga, feeds map[string][]catalog.Chapter) (catalog.MangaChangeSet, catalog.ChapterChangeSet, error) {

	states, err := runner.reader.MangaStates(ctx)
	if err != nil {
		return catalog.MangaChangeSet{}, catalog.ChapterChangeSet{}, err
	}
	mangaCS := catalog.ReconcileManga(ctx, mangas, states)

	feedIDs := make([]string, 0, len(feeds))
	var chapters []catalog.Chapter
	for mangaID, feed := range feeds {
		feedIDs = append(feedIDs, mangaID)
		chapters = append(chapters, feed...)
	}
	refs, err := runner.reader.ChapterRefs(ctx, feedIDs)
	if err != nil {
		return catalog.MangaChangeSet{}, catalog.ChapterChangeSet{}, err
	}
	chapterCS := catalog.ReconcileChapters(ctx, chapters, refs, runner.opts.PreferredLanguage)

	return mangaCS, chapterCS, nil
}

/*
ApplyAll reconciles the crawled batch and applies the resulting change set
across both stores under compensation.

Description: The only stage that touches the transaction manager. All
network fetching happens before the session opens, so the transaction window
contains only store round-trips. Any write failure triggers rollback before
the error propagates; a cycle either fully applies or reports failure with
its pre-cycle state restored.

Parameters:
  - ctx: Carries the cycle logger.
  - mangas: The crawled manga batch.
  - feeds: Crawled chapter feeds keyed by manga id.
  - payloads: Fetched image URL lists keyed by chapter id.

Returns:
  - *Summary: Counts for the committed cycle.
  - error: The cycle's failure after best-effort compensation.
*/
func (runner *Runner) ApplyAll(ctx context.Context, mangas []catalog.Manga, feeds map[string][]catalog.Chapter, payloads map[string][]string) (*Summary, error) {
	logger := ctxutil.GetLogger(ctx)

	mangaCS, chapterCS, err := runner.reconcile(ctx, mangas, feeds)
	if err != nil {
		return nil, err
	}
	if mangaCS.Empty() && chapterCS.Empty() {
		logger.Info("apply_skipped_no_changes")
		return &Summary{}, nil
	}

	manager := NewManager(runner.factory, runner.images)
	if err := manager.Begin(ctx); err != nil {
		return nil, err
	}

	summary, err := NewWriter(manager).Apply(ctx, mangaCS, chapterCS, payloads)
	if err != nil {
		logger.Error("apply_failed_rolling_back", slog.String("error", err.Error()))
		if rbErr := manager.Rollback(ctx); rbErr != nil {
			logger.Error("rollback_failed", slog.String("error", rbErr.Error()))
		}
		return nil, err
	}

	if err := manager.Commit(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

/*
Run executes one complete ingestion cycle: crawl, reconcile, fetch payloads
for the chapters that need them, and apply.

Description: Reconciliation runs once up front to decide which chapters need
image payloads, and again inside ApplyAll against the same stored state; with
one cycle in flight both passes see identical state, and the second pass is
what the apply is registered against.

Returns:
  - *Summary: The committed cycle's counts.
  - error: A fetch or apply failure; applied state is compensated first.
*/
func (runner *Runner) Run(ctx context.Context) (*Summary, error) {
	logger := ctxutil.GetLogger(ctx)
	started := time.Now()

	mangas, err := runner.FetchManga(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("cycle_manga_fetched", slog.Int("count", len(mangas)))

	mangaIDs := make([]string, 0, len(mangas))
	for _, m := range mangas {
		mangaIDs = append(mangaIDs, m.ID)
	}
	feeds, err := runner.FetchChapters(ctx, mangaIDs)
	if err != nil {
		return nil, err
	}

	_, chapterCS, err := runner.reconcile(ctx, mangas, feeds)
	if err != nil {
		return nil, err
	}
	payloads, err := runner.FetchImages(ctx, chapterCS.FetchIDs())
	if err != nil {
		return nil, err
	}

	summary, err := runner.ApplyAll(ctx, mangas, feeds, payloads)
	if err != nil {
		return nil, err
	}

	logger.Info("cycle_completed",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("manga_added", summary.MangaAdded),
		slog.Int("manga_updated", summary.MangaUpdated),
		slog.Int("chapters_added", summary.ChaptersAdded),
		slog.Int("chapters_replaced", summary.ChaptersReplaced),
		slog.Int("images_inserted", summary.ImagesInserted),
		slog.Int("images_deleted", summary.ImagesDeleted))
	return summary, nil
}
