// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/torikomi/internal/platform/database/schema"
)

// # PostgreSQL Reader

// pgReader implements [Reader] on the connection pool. Projections are read
// outside any session so comparison never holds transaction locks.
type pgReader struct {
	pool *pgxpool.Pool
}

// NewReader constructs a PostgreSQL backed projection reader.
func NewReader(pool *pgxpool.Pool) Reader {
	return &pgReader{pool: pool}
}

/*
MangaStates loads the comparison projection for every stored manga.

Description: Pulls only the three columns reconciliation compares so a full
catalogue scan stays cheap even once the mirror holds the complete upstream
title list.

Returns:
  - map[string]MangaState: Stored state keyed by manga id.
  - error: Database or connection errors.
*/
func (reader *pgReader) MangaStates(ctx context.Context) (map[string]MangaState, error) {

	// Projection query over the whole catalogue
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s`,
		schema.CatalogManga.ID,
		schema.CatalogManga.Status,
		schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.Genres,
		schema.CatalogManga.Table,
	)

	rows, err := reader.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load manga states: %w", err)
	}
	defer rows.Close()

	// Hydrate the projection map
	states := make(map[string]MangaState)
	for rows.Next() {
		var id string
		var state MangaState
		if err := rows.Scan(&id, &state.Status, &state.UpdatedAt, &state.Genres); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan manga state: %w", err)
		}
		states[id] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate manga states: %w", err)
	}

	return states, nil
}

/*
ChapterRefs loads stored chapter refs for the given manga ids.

Returns:
  - map[ChapterKey]ChapterRef: Stored refs keyed by the slot they occupy.
  - error: Database or connection errors.
*/
func (reader *pgReader) ChapterRefs(ctx context.Context, mangaIDs []string) (map[ChapterKey]ChapterRef, error) {

	refs := make(map[ChapterKey]ChapterRef)
	if len(mangaIDs) == 0 {
		return refs, nil
	}

	// Slot projection restricted to the crawled manga
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s WHERE %s = ANY($1)`,
		schema.CatalogChapter.ID,
		schema.CatalogChapter.MangaID,
		schema.CatalogChapter.Number,
		schema.CatalogChapter.Lang,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.MangaID,
	)

	rows, err := reader.pool.Query(ctx, query, mangaIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load chapter refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key ChapterKey
		var ref ChapterRef
		if err := rows.Scan(&ref.ID, &key.MangaID, &key.Number, &ref.Lang); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter ref: %w", err)
		}
		refs[key] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate chapter refs: %w", err)
	}

	return refs, nil
}

// # PostgreSQL Sessions

// pgSessionFactory implements [SessionFactory] by opening pgx transactions
// on the pool.
type pgSessionFactory struct {
	pool *pgxpool.Pool
}

// NewSessionFactory constructs a PostgreSQL backed session factory.
func NewSessionFactory(pool *pgxpool.Pool) SessionFactory {
	return &pgSessionFactory{pool: pool}
}

// Begin opens a transaction-scoped session.
func (factory *pgSessionFactory) Begin(ctx context.Context) (Session, error) {
	tx, err := factory.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin session: %w", err)
	}
	return &pgSession{tx: tx}, nil
}

// pgSession scopes the row stores to one transaction.
type pgSession struct {
	tx pgx.Tx
}

func (session *pgSession) Mangas() MangaStore     { return &mangaStore{tx: session.tx} }
func (session *pgSession) Chapters() ChapterStore { return &chapterStore{tx: session.tx} }

// Commit makes the session durable.
func (session *pgSession) Commit(ctx context.Context) error {
	if err := session.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit session: %w", err)
	}
	return nil
}

// Rollback discards the session. pgx reports ErrTxClosed when the transaction
// already finished, which is not a failure here.
func (session *pgSession) Rollback(ctx context.Context) error {
	if err := session.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: failed to roll back session: %w", err)
	}
	return nil
}

// # Manga Store Implementation

// mangaStore implements [MangaStore] inside a transaction.
type mangaStore struct {
	tx pgx.Tx
}

/*
Insert adds manga rows in a single pipelined batch.

Description: Uses 'ON CONFLICT DO NOTHING' so a row that slipped into the
catalogue between projection load and write does not abort the whole cycle.
*/
func (store *mangaStore) Insert(ctx context.Context, mangas []Manga) error {

	if len(mangas) == 0 {
		return nil
	}

	// Batch queue construction
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (%s) DO NOTHING
	`,
		schema.CatalogManga.Table,
		schema.CatalogManga.ID, schema.CatalogManga.Title, schema.CatalogManga.AltTitle,
		schema.CatalogManga.Slug, schema.CatalogManga.Status, schema.CatalogManga.PublishedYear,
		schema.CatalogManga.Genres, schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL,
		schema.CatalogManga.CreatedAt, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.ID,
	)

	batch := &pgx.Batch{}
	for _, m := range mangas {
		batch.Queue(query,
			m.ID, m.Title, m.AltTitle, m.Slug, m.Status, m.PublishedYear,
			m.Genres, m.OriginalLanguage, m.CoverURL, m.CreatedAt, m.UpdatedAt,
		)
	}

	return store.sendBatch(ctx, batch, "insert manga")
}

/*
Update overwrites the mutable columns of existing manga rows.

Description: The id never changes for manga; only upstream-driven metadata is
rewritten. Timestamps come from the crawled payload, not the local clock, so
re-running a cycle is idempotent.
*/
func (store *mangaStore) Update(ctx context.Context, mangas []Manga) error {

	if len(mangas) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5,
			%s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $10
	`,
		schema.CatalogManga.Table,
		schema.CatalogManga.Title, schema.CatalogManga.AltTitle, schema.CatalogManga.Slug,
		schema.CatalogManga.Status, schema.CatalogManga.PublishedYear, schema.CatalogManga.Genres,
		schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.ID,
	)

	batch := &pgx.Batch{}
	for _, m := range mangas {
		batch.Queue(query,
			m.Title, m.AltTitle, m.Slug, m.Status, m.PublishedYear,
			m.Genres, m.OriginalLanguage, m.CoverURL, m.UpdatedAt, m.ID,
		)
	}

	return store.sendBatch(ctx, batch, "update manga")
}

/*
Snapshot loads full manga rows for the given ids.

Description: Missing ids are silently omitted; a row absent at snapshot time
means there is nothing to restore for it later.
*/
func (store *mangaStore) Snapshot(ctx context.Context, ids []string) ([]Manga, error) {

	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ANY($1)
	`,
		schema.CatalogManga.ID, schema.CatalogManga.Title, schema.CatalogManga.AltTitle,
		schema.CatalogManga.Slug, schema.CatalogManga.Status, schema.CatalogManga.PublishedYear,
		schema.CatalogManga.Genres, schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL,
		schema.CatalogManga.CreatedAt, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.Table,
		schema.CatalogManga.ID,
	)

	rows, err := store.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to snapshot manga: %w", err)
	}
	defer rows.Close()

	var mangas []Manga
	for rows.Next() {
		var m Manga
		err := rows.Scan(
			&m.ID, &m.Title, &m.AltTitle, &m.Slug, &m.Status, &m.PublishedYear,
			&m.Genres, &m.OriginalLanguage, &m.CoverURL, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan manga snapshot: %w", err)
		}
		mangas = append(mangas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate manga snapshot: %w", err)
	}

	return mangas, nil
}

/*
Restore writes snapshotted manga rows back verbatim, every column included.
*/
func (store *mangaStore) Restore(ctx context.Context, mangas []Manga) error {

	if len(mangas) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5,
			%s = $6, %s = $7, %s = $8, %s = $9, %s = $10
		WHERE %s = $11
	`,
		schema.CatalogManga.Table,
		schema.CatalogManga.Title, schema.CatalogManga.AltTitle, schema.CatalogManga.Slug,
		schema.CatalogManga.Status, schema.CatalogManga.PublishedYear, schema.CatalogManga.Genres,
		schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL,
		schema.CatalogManga.CreatedAt, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.ID,
	)

	batch := &pgx.Batch{}
	for _, m := range mangas {
		batch.Queue(query,
			m.Title, m.AltTitle, m.Slug, m.Status, m.PublishedYear,
			m.Genres, m.OriginalLanguage, m.CoverURL, m.CreatedAt, m.UpdatedAt, m.ID,
		)
	}

	return store.sendBatch(ctx, batch, "restore manga")
}

// Delete removes manga rows by id.
func (store *mangaStore) Delete(ctx context.Context, ids []string) error {

	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`,
		schema.CatalogManga.Table, schema.CatalogManga.ID)

	if _, err := store.tx.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("postgres: failed to delete manga: %w", err)
	}
	return nil
}

// sendBatch runs a queued batch and drains every result.
func (store *mangaStore) sendBatch(ctx context.Context, batch *pgx.Batch, action string) error {
	result := store.tx.SendBatch(ctx, batch)
	defer result.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := result.Exec(); err != nil {
			return fmt.Errorf("postgres: failed to %s (item %d): %w", action, i, err)
		}
	}
	return nil
}

// # Chapter Store Implementation

// chapterStore implements [ChapterStore] inside a transaction.
type chapterStore struct {
	tx pgx.Tx
}

/*
Insert adds chapter rows in a single pipelined batch.

Description: Uses 'ON CONFLICT DO NOTHING' on the primary key so re-running a
cycle against an already-mirrored feed stays idempotent.
*/
func (store *chapterStore) Insert(ctx context.Context, chapters []Chapter) error {

	if len(chapters) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (%s) DO NOTHING
	`,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.ID, schema.CatalogChapter.MangaID, schema.CatalogChapter.Number,
		schema.CatalogChapter.Volume, schema.CatalogChapter.Title, schema.CatalogChapter.Lang,
		schema.CatalogChapter.Pages, schema.CatalogChapter.CreatedAt,
		schema.CatalogChapter.ID,
	)

	batch := &pgx.Batch{}
	for _, ch := range chapters {
		batch.Queue(query,
			ch.ID, ch.MangaID, ch.Number, ch.Volume, ch.Title, ch.Lang, ch.Pages, ch.CreatedAt,
		)
	}

	return store.sendBatch(ctx, batch, "insert chapter")
}

/*
Replace overwrites superseded rows with their preferred-language replacements.

Description: Every column is rewritten, the primary key included, so the slot
carries exactly one row before and after. The old id is the only handle on
the row being replaced.
*/
func (store *chapterStore) Replace(ctx context.Context, replacements []Replacement) error {

	if len(replacements) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8
		WHERE %s = $9
	`,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.ID, schema.CatalogChapter.MangaID, schema.CatalogChapter.Number,
		schema.CatalogChapter.Volume, schema.CatalogChapter.Title, schema.CatalogChapter.Lang,
		schema.CatalogChapter.Pages, schema.CatalogChapter.CreatedAt,
		schema.CatalogChapter.ID,
	)

	batch := &pgx.Batch{}
	for _, r := range replacements {
		ch := r.Chapter
		batch.Queue(query,
			ch.ID, ch.MangaID, ch.Number, ch.Volume, ch.Title, ch.Lang, ch.Pages, ch.CreatedAt,
			r.OldID,
		)
	}

	return store.sendBatch(ctx, batch, "replace chapter")
}

/*
Snapshot loads full chapter rows for the given ids, omitting missing ones.
*/
func (store *chapterStore) Snapshot(ctx context.Context, ids []string) ([]Chapter, error) {

	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ANY($1)
	`,
		schema.CatalogChapter.ID, schema.CatalogChapter.MangaID, schema.CatalogChapter.Number,
		schema.CatalogChapter.Volume, schema.CatalogChapter.Title, schema.CatalogChapter.Lang,
		schema.CatalogChapter.Pages, schema.CatalogChapter.CreatedAt,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.ID,
	)

	rows, err := store.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to snapshot chapters: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var ch Chapter
		err := rows.Scan(
			&ch.ID, &ch.MangaID, &ch.Number, &ch.Volume, &ch.Title,
			&ch.Lang, &ch.Pages, &ch.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter snapshot: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate chapter snapshot: %w", err)
	}

	return chapters, nil
}

/*
Restore writes snapshotted chapter rows back verbatim.

Description: Restoration is keyed by the slot a row occupies rather than its
id, because the forward pass may have rewritten the id in place. Whatever row
holds the slot now reverts to the snapshotted identity and data.
*/
func (store *chapterStore) Restore(ctx context.Context, chapters []Chapter) error {

	if len(chapters) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = $6
		WHERE %s = $7 AND %s = $8
	`,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.ID, schema.CatalogChapter.Volume, schema.CatalogChapter.Title,
		schema.CatalogChapter.Lang, schema.CatalogChapter.Pages, schema.CatalogChapter.CreatedAt,
		schema.CatalogChapter.MangaID, schema.CatalogChapter.Number,
	)

	batch := &pgx.Batch{}
	for _, ch := range chapters {
		batch.Queue(query,
			ch.ID, ch.Volume, ch.Title, ch.Lang, ch.Pages, ch.CreatedAt,
			ch.MangaID, ch.Number,
		)
	}

	return store.sendBatch(ctx, batch, "restore chapter")
}

// Delete removes chapter rows by id.
func (store *chapterStore) Delete(ctx context.Context, ids []string) error {

	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`,
		schema.CatalogChapter.Table, schema.CatalogChapter.ID)

	if _, err := store.tx.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("postgres: failed to delete chapters: %w", err)
	}
	return nil
}

// sendBatch runs a queued batch and drains every result.
func (store *chapterStore) sendBatch(ctx context.Context, batch *pgx.Batch, action string) error {
	result := store.tx.SendBatch(ctx, batch)
	defer result.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := result.Exec(); err != nil {
			return fmt.Errorf("postgres: failed to %s (item %d): %w", action, i, err)
		}
	}
	return nil
}
