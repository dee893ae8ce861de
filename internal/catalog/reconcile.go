// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"log/slog"
	"slices"

	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// # Change Sets

// MangaChangeSet partitions a crawled batch into rows to insert and rows to
// update. Records matching stored state are dropped here so the writer only
// ever touches true deltas.
type MangaChangeSet struct {
	Add    []Manga
	Update []Manga
}

// Empty reports whether the change set carries no work.
func (cs MangaChangeSet) Empty() bool {
	return len(cs.Add) == 0 && len(cs.Update) == 0
}

// Replacement pairs an incoming chapter with the stored row it supersedes.
// The incoming row overwrites every column of the old one, id included.
type Replacement struct {
	OldID   string
	Chapter Chapter
}

// ChapterChangeSet partitions a chapter feed into fresh inserts, language
// supersessions, and the ids of superseded rows whose image documents must
// be removed.
type ChapterChangeSet struct {
	Add        []Chapter
	Replace    []Replacement
	Superseded []string
}

// Empty reports whether the change set carries no work.
func (cs ChapterChangeSet) Empty() bool {
	return len(cs.Add) == 0 && len(cs.Replace) == 0
}

// FetchIDs returns the chapter ids whose image documents need fetching: every
// added or replacing chapter that actually has pages. Page-less entries
// (external or not yet uploaded) are excluded so the at-home lookup is never
// wasted on them.
func (cs ChapterChangeSet) FetchIDs() []string {
	ids := make([]string, 0, len(cs.Add)+len(cs.Replace))
	for _, ch := range cs.Add {
		if ch.Pages > 0 {
			ids = append(ids, ch.ID)
		}
	}
	for _, r := range cs.Replace {
		if r.Chapter.Pages > 0 {
			ids = append(ids, r.Chapter.ID)
		}
	}
	return ids
}

// # Reconciliation

/*
ReconcileManga classifies crawled manga against the stored projection.

A record is an insert when its id is unseen, and an update when its status
differs, its upstream updated timestamp is strictly newer, or its genre set
changed. Everything else is unchanged and dropped. Records with an empty id
or title are malformed upstream payloads; they are logged and skipped rather
than failing the cycle.

Parameters:
  - ctx: carries the structured logger for skip events.
  - fetched: the crawled batch, in crawl order.
  - existing: stored state keyed by manga id.

Returns:
  - MangaChangeSet: inserts and updates, preserving crawl order.
*/
func ReconcileManga(ctx context.Context, fetched []Manga, existing map[string]MangaState) MangaChangeSet {
	logger := ctxutil.GetLogger(ctx)

	var cs MangaChangeSet
	for _, m := range fetched {
		if m.ID == "" || m.Title == "" {
			logger.Warn("manga_record_skipped",
				slog.String("reason", "missing id or title"),
				slog.String("id", m.ID))
			continue
		}

		state, ok := existing[m.ID]
		if !ok {
			cs.Add = append(cs.Add, m)
			continue
		}
		if m.Status != state.Status ||
			m.UpdatedAt.After(state.UpdatedAt) ||
			!genresEqual(m.Genres, state.Genres) {
			cs.Update = append(cs.Update, m)
		}
	}
	return cs
}

/*
ReconcileChapters classifies a chapter feed against the stored projection.

Each manga holds at most one row per chapter number. A feed entry whose slot
is empty becomes an insert. An entry whose slot is held by the same id is
already mirrored and dropped. An entry in the preferred language whose slot
is held by another language replaces the stored row, and the stored id is
recorded as superseded so its image document can be deleted. Any other
occupied slot is left alone.

When the feed itself carries several variants for one slot the preferred
language wins; otherwise the first variant seen is kept.

Parameters:
  - ctx: carries the structured logger for skip events.
  - fetched: feed entries across all crawled manga.
  - existing: stored refs keyed by (manga id, chapter number).
  - preferredLang: the language that supersedes others, e.g. "en".

Returns:
  - ChapterChangeSet: inserts, replacements, and superseded ids.
*/
func ReconcileChapters(ctx context.Context, fetched []Chapter, existing map[ChapterKey]ChapterRef, preferredLang string) ChapterChangeSet {
	logger := ctxutil.GetLogger(ctx)

	// In-feed dedup first: one candidate per slot, preferred language winning.
	candidates := make(map[ChapterKey]Chapter, len(fetched))
	order := make([]ChapterKey, 0, len(fetched))
	for _, ch := range fetched {
		if ch.ID == "" || ch.MangaID == "" || ch.Number == "" {
			logger.Warn("chapter_record_skipped",
				slog.String("reason", "missing id, manga id, or number"),
				slog.String("id", ch.ID))
			continue
		}

		key := ch.Key()
		held, ok := candidates[key]
		if !ok {
			candidates[key] = ch
			order = append(order, key)
			continue
		}
		if ch.Lang == preferredLang && held.Lang != preferredLang {
			candidates[key] = ch
		}
	}

	var cs ChapterChangeSet
	for _, key := range order {
		ch := candidates[key]
		ref, ok := existing[key]
		if !ok {
			cs.Add = append(cs.Add, ch)
			continue
		}
		if ref.ID == ch.ID {
			continue
		}
		if ch.Lang == preferredLang && ref.Lang != preferredLang {
			cs.Replace = append(cs.Replace, Replacement{OldID: ref.ID, Chapter: ch})
			cs.Superseded = append(cs.Superseded, ref.ID)
		}
	}
	return cs
}

// genresEqual compares genre sets ignoring order.
func genresEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}
