// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "context"

// # Storage Contracts

// MangaStore persists manga rows inside a session.
type MangaStore interface {
	// Insert adds rows, silently skipping ids that already exist.
	Insert(ctx context.Context, mangas []Manga) error

	// Update overwrites the mutable columns of existing rows.
	Update(ctx context.Context, mangas []Manga) error

	// Snapshot loads full rows for the given ids. Missing ids are omitted,
	// not errors: a missing row means there is nothing to restore.
	Snapshot(ctx context.Context, ids []string) ([]Manga, error)

	// Restore writes previously snapshotted rows back verbatim.
	Restore(ctx context.Context, mangas []Manga) error

	// Delete removes rows by id.
	Delete(ctx context.Context, ids []string) error
}

// ChapterStore persists chapter rows inside a session.
type ChapterStore interface {
	// Insert adds rows, silently skipping ids that already exist.
	Insert(ctx context.Context, chapters []Chapter) error

	// Replace overwrites superseded rows with their replacements, the row id
	// included, so the slot keeps a single row throughout.
	Replace(ctx context.Context, replacements []Replacement) error

	// Snapshot loads full rows for the given ids, omitting missing ones.
	Snapshot(ctx context.Context, ids []string) ([]Chapter, error)

	// Restore writes previously snapshotted rows back verbatim, keyed by the
	// slot they occupy so replaced rows revert to their old identity.
	Restore(ctx context.Context, chapters []Chapter) error

	// Delete removes rows by id.
	Delete(ctx context.Context, ids []string) error
}

// ImageStore persists per-chapter image documents. Unlike the row stores it
// is not transactional; the compensation layer reverses its writes manually.
type ImageStore interface {
	// ExistingIDs reports which of the given chapter ids already have a
	// stored document.
	ExistingIDs(ctx context.Context, chapterIDs []string) (map[string]bool, error)

	// BulkInsert stores documents whole, overwriting any existing ones.
	BulkInsert(ctx context.Context, sets []ImageSet) error

	// Delete removes documents by chapter id. Absent ids are not errors.
	Delete(ctx context.Context, chapterIDs []string) error

	// Snapshot loads existing documents for the given ids, omitting absent
	// ones.
	Snapshot(ctx context.Context, chapterIDs []string) ([]ImageSet, error)
}

// Session scopes relational writes to a single atomic unit. Forward writes
// and their compensations run through the same session until it is committed
// or rolled back.
type Session interface {
	Mangas() MangaStore
	Chapters() ChapterStore

	// Commit makes every write in the session durable. After Commit the
	// session is dead either way.
	Commit(ctx context.Context) error

	// Rollback discards every write in the session. Safe to call after a
	// failed Commit.
	Rollback(ctx context.Context) error
}

// SessionFactory opens sessions. The compensation layer uses it both for the
// forward pass and, when a session dies mid-rollback, for the fresh session
// the reversal completes on.
type SessionFactory interface {
	Begin(ctx context.Context) (Session, error)
}

// Reader serves the read-only projections reconciliation compares against.
// Reads run outside any session; a cycle owns the catalogue while it runs.
type Reader interface {
	// MangaStates loads the comparison projection for the whole catalogue.
	MangaStates(ctx context.Context) (map[string]MangaState, error)

	// ChapterRefs loads stored chapter refs for the given manga, keyed by
	// the slot they occupy.
	ChapterRefs(ctx context.Context, mangaIDs []string) (map[ChapterKey]ChapterRef, error)
}
