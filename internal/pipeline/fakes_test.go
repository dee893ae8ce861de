// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/taibuivan/torikomi/internal/catalog"
)

// fakeDB is the in-memory relational state shared by fake sessions.
type fakeDB struct {
	mangas   map[string]catalog.Manga
	chapters map[string]catalog.Chapter
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		mangas:   make(map[string]catalog.Manga),
		chapters: make(map[string]catalog.Chapter),
	}
}

func (db *fakeDB) clone() *fakeDB {
	return &fakeDB{
		mangas:   maps.Clone(db.mangas),
		chapters: maps.Clone(db.chapters),
	}
}

// fakeFactory opens fake sessions against the shared state. commitErrs is
// consumed one entry per session commit, letting a test fail the first
// commit and let a later one (the reversal) succeed.
type fakeFactory struct {
	db         *fakeDB
	beginErr   error
	commitErrs []error
	begun      int
}

func (factory *fakeFactory) Begin(_ context.Context) (catalog.Session, error) {
	if factory.beginErr != nil {
		return nil, factory.beginErr
	}
	factory.begun++
	return &fakeSession{factory: factory, db: factory.db, staged: factory.db.clone()}, nil
}

func (factory *fakeFactory) nextCommitErr() error {
	if len(factory.commitErrs) == 0 {
		return nil
	}
	err := factory.commitErrs[0]
	factory.commitErrs = factory.commitErrs[1:]
	return err
}

// fakeSession stages writes on a copy and publishes them on commit,
// mirroring transaction visibility.
type fakeSession struct {
	factory    *fakeFactory
	db         *fakeDB
	staged     *fakeDB
	finished   bool
	committed  bool
	rolledBack bool
}

func (session *fakeSession) Mangas() catalog.MangaStore     { return &fakeMangaStore{session: session} }
func (session *fakeSession) Chapters() catalog.ChapterStore { return &fakeChapterStore{session: session} }

func (session *fakeSession) Commit(_ context.Context) error {
	if session.finished {
		return errors.New("fake session already finished")
	}
	if err := session.factory.nextCommitErr(); err != nil {
		session.finished = true
		return err
	}
	session.db.mangas = session.staged.mangas
	session.db.chapters = session.staged.chapters
	session.finished = true
	session.committed = true
	return nil
}

func (session *fakeSession) Rollback(_ context.Context) error {
	if session.finished {
		return nil
	}
	session.finished = true
	session.rolledBack = true
	return nil
}

type fakeMangaStore struct {
	session *fakeSession
}

func (store *fakeMangaStore) Insert(_ context.Context, mangas []catalog.Manga) error {
	for _, m := range mangas {
		if _, ok := store.session.staged.mangas[m.ID]; ok {
			continue
		}
		store.session.staged.mangas[m.ID] = m
	}
	return nil
}

func (store *fakeMangaStore) Update(_ context.Context, mangas []catalog.Manga) error {
	for _, m := range mangas {
		if _, ok := store.session.staged.mangas[m.ID]; ok {
			store.session.staged.mangas[m.ID] = m
		}
	}
	return nil
}

func (store *fakeMangaStore) Snapshot(_ context.Context, ids []string) ([]catalog.Manga, error) {
	var found []catalog.Manga
	for _, id := range ids {
		if m, ok := store.session.staged.mangas[id]; ok {
			found = append(found, m)
		}
	}
	return found, nil
}

func (store *fakeMangaStore) Restore(_ context.Context, mangas []catalog.Manga) error {
	for _, m := range mangas {
		store.session.staged.mangas[m.ID] = m
	}
	return nil
}

func (store *fakeMangaStore) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(store.session.staged.mangas, id)
	}
	return nil
}

type fakeChapterStore struct {
	session *fakeSession
}

func (store *fakeChapterStore) Insert(_ context.Context, chapters []catalog.Chapter) error {
	for _, ch := range chapters {
		if _, ok := store.session.staged.chapters[ch.ID]; ok {
			continue
		}
		store.session.staged.chapters[ch.ID] = ch
	}
	return nil
}

func (store *fakeChapterStore) Replace(_ context.Context, replacements []catalog.Replacement) error {
	for _, r := range replacements {
		delete(store.session.staged.chapters, r.OldID)
		store.session.staged.chapters[r.Chapter.ID] = r.Chapter
	}
	return nil
}

func (store *fakeChapterStore) Snapshot(_ context.Context, ids []string) ([]catalog.Chapter, error) {
	var found []catalog.Chapter
	for _, id := range ids {
		if ch, ok := store.session.staged.chapters[id]; ok {
			found = append(found, ch)
		}
	}
	return found, nil
}

// Restore is slot-keyed: whatever row currently holds (manga id, number)
// reverts to the snapshotted identity and data.
func (store *fakeChapterStore) Restore(_ context.Context, chapters []catalog.Chapter) error {
	for _, snapshot := range chapters {
		for id, current := range store.session.staged.chapters {
			if current.MangaID == snapshot.MangaID && current.Number == snapshot.Number {
				delete(store.session.staged.chapters, id)
				break
			}
		}
		store.session.staged.chapters[snapshot.ID] = snapshot
	}
	return nil
}

func (store *fakeChapterStore) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(store.session.staged.chapters, id)
	}
	return nil
}

// fakeImageStore is the in-memory document store. Writes take effect
// immediately, like the real store; failure injection is per chapter id.
type fakeImageStore struct {
	docs          map[string][]string
	failInsertFor map[string]bool
	failDeleteFor map[string]bool
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{
		docs:          make(map[string][]string),
		failInsertFor: make(map[string]bool),
		failDeleteFor: make(map[string]bool),
	}
}

func (store *fakeImageStore) ExistingIDs(_ context.Context, chapterIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, id := range chapterIDs {
		if _, ok := store.docs[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

func (store *fakeImageStore) BulkInsert(_ context.Context, sets []catalog.ImageSet) error {
	for _, set := range sets {
		if store.failInsertFor[set.ChapterID] {
			return errors.New("injected image insert failure")
		}
		store.docs[set.ChapterID] = set.Images
	}
	return nil
}

func (store *fakeImageStore) Delete(_ context.Context, chapterIDs []string) error {
	for _, id := range chapterIDs {
		if store.failDeleteFor[id] {
			return errors.New("injected image delete failure")
		}
		delete(store.docs, id)
	}
	return nil
}

func (store *fakeImageStore) Snapshot(_ context.Context, chapterIDs []string) ([]catalog.ImageSet, error) {
	var sets []catalog.ImageSet
	for _, id := range chapterIDs {
		if images, ok := store.docs[id]; ok {
			sets = append(sets, catalog.ImageSet{ChapterID: id, Images: images})
		}
	}
	return sets, nil
}

// fakeReader projects committed state only, like the pool-backed reader.
type fakeReader struct {
	db *fakeDB
}

func (reader *fakeReader) MangaStates(_ context.Context) (map[string]catalog.MangaState, error) {
	states := make(map[string]catalog.MangaState, len(reader.db.mangas))
	for id, m := range reader.db.mangas {
		states[id] = catalog.MangaState{Status: m.Status, UpdatedAt: m.UpdatedAt, Genres: m.Genres}
	}
	return states, nil
}

func (reader *fakeReader) ChapterRefs(_ context.Context, mangaIDs []string) (map[catalog.ChapterKey]catalog.ChapterRef, error) {
	wanted := make(map[string]bool, len(mangaIDs))
	for _, id := range mangaIDs {
		wanted[id] = true
	}
	refs := make(map[catalog.ChapterKey]catalog.ChapterRef)
	for _, ch := range reader.db.chapters {
		if wanted[ch.MangaID] {
			refs[ch.Key()] = catalog.ChapterRef{ID: ch.ID, Lang: ch.Lang}
		}
	}
	return refs, nil
}

// fakeSource replays canned crawl results.
type fakeSource struct {
	mangas   []catalog.Manga
	feeds    map[string][]catalog.Chapter
	payloads map[string][]string
}

func (source *fakeSource) ListManga(_ context.Context, _ bool, _ time.Duration) ([]catalog.Manga, error) {
	return source.mangas, nil
}

func (source *fakeSource) ChapterFeeds(_ context.Context, mangaIDs []string, _ int, _ bool, _ time.Duration) (map[string][]catalog.Chapter, error) {
	feeds := make(map[string][]catalog.Chapter)
	for _, id := range mangaIDs {
		if feed, ok := source.feeds[id]; ok {
			feeds[id] = feed
		}
	}
	return feeds, nil
}

func (source *fakeSource) ImageURLs(_ context.Context, chapterIDs []string, _ int) (map[string][]string, error) {
	payloads := make(map[string][]string)
	for _, id := range chapterIDs {
		if urls, ok := source.payloads[id]; ok {
			payloads[id] = urls
		}
	}
	return payloads, nil
}
