// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/torikomi/internal/platform/apperr"
	"github.com/taibuivan/torikomi/internal/platform/database/schema"
	"github.com/taibuivan/torikomi/internal/platform/dberr"
)

// statsRepository implements [StatsRepository] using pgx.
type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository constructs a PostgreSQL backed stats repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

/*
ListManga retrieves a filtered, paginated slice of the mirrored catalogue.

Description: Uses a window function for the total count so filtering and
counting cost a single round-trip.

Parameters:
  - ctx: context.Context
  - f: Filter (dimension filters)
  - limit, offset: Pagination bounds.

Returns:
  - []Manga: The matching page of manga.
  - int: Total matching count for pagination.
  - error: Database or connection errors.
*/
func (repository *statsRepository) ListManga(ctx context.Context, f Filter, limit, offset int) ([]Manga, int, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s,
			COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d
	`,
		schema.CatalogManga.ID, schema.CatalogManga.Title, schema.CatalogManga.AltTitle,
		schema.CatalogManga.Slug, schema.CatalogManga.Status, schema.CatalogManga.PublishedYear,
		schema.CatalogManga.Genres, schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL,
		schema.CatalogManga.CreatedAt, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.Table,
		clause,
		schema.CatalogManga.UpdatedAt,
		len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_manga")
	}
	defer rows.Close()

	var mangas []Manga
	var totalCount int
	for rows.Next() {
		var m Manga
		err := rows.Scan(
			&m.ID, &m.Title, &m.AltTitle, &m.Slug, &m.Status, &m.PublishedYear,
			&m.Genres, &m.OriginalLanguage, &m.CoverURL, &m.CreatedAt, &m.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_manga")
		}
		mangas = append(mangas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_manga")
	}

	return mangas, totalCount, nil
}

/*
FindManga returns the manga with the given id.

Returns:
  - *Manga: The matching record.
  - error: apperr.NotFound on absent rows.
*/
func (repository *statsRepository) FindManga(ctx context.Context, id string) (*Manga, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CatalogManga.ID, schema.CatalogManga.Title, schema.CatalogManga.AltTitle,
		schema.CatalogManga.Slug, schema.CatalogManga.Status, schema.CatalogManga.PublishedYear,
		schema.CatalogManga.Genres, schema.CatalogManga.OriginalLanguage, schema.CatalogManga.CoverURL,
		schema.CatalogManga.CreatedAt, schema.CatalogManga.UpdatedAt,
		schema.CatalogManga.Table,
		schema.CatalogManga.ID,
	)

	var m Manga
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.AltTitle, &m.Slug, &m.Status, &m.PublishedYear,
		&m.Genres, &m.OriginalLanguage, &m.CoverURL, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("manga")
		}
		return nil, dberr.Wrap(err, "find_manga")
	}

	return &m, nil
}

/*
ListChapters returns every chapter of a manga ordered by chapter number.

Description: Numbers are strings upstream, so ordering casts numerically
where possible and falls back to lexical order for non-numeric labels.
*/
func (repository *statsRepository) ListChapters(ctx context.Context, mangaID string) ([]Chapter, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY (CASE WHEN %s ~ '^[0-9]+(\.[0-9]+)?$' THEN %s::numeric END) ASC NULLS LAST, %s ASC
	`,
		schema.CatalogChapter.ID, schema.CatalogChapter.MangaID, schema.CatalogChapter.Number,
		schema.CatalogChapter.Volume, schema.CatalogChapter.Title, schema.CatalogChapter.Lang,
		schema.CatalogChapter.Pages, schema.CatalogChapter.CreatedAt,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.MangaID,
		schema.CatalogChapter.Number, schema.CatalogChapter.Number, schema.CatalogChapter.Number,
	)

	rows, err := repository.pool.Query(ctx, query, mangaID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_chapters")
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
			return nil, dberr.Wrap(err, "scan_chapter")
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_chapters")
	}

	return chapters, nil
}

/*
StatusOverview counts matching manga per lifecycle status.
*/
func (repository *statsRepository) StatusOverview(ctx context.Context, f Filter) ([]StatusCount, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM %s
		WHERE %s
		GROUP BY %s
		ORDER BY COUNT(*) DESC
	`,
		schema.CatalogManga.Status,
		schema.CatalogManga.Table,
		clause,
		schema.CatalogManga.Status,
	)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "status_overview")
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, dberr.Wrap(err, "scan_status_count")
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_status_counts")
	}

	return counts, nil
}

/*
TopGenres ranks genres by how many matching manga carry them.

Description: Unnests the genre array so a manga contributes one count to
each genre it carries.
*/
func (repository *statsRepository) TopGenres(ctx context.Context, f Filter, limit int) ([]GenreCount, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT genre, COUNT(*)
		FROM %s, UNNEST(%s) AS genre
		WHERE %s
		GROUP BY genre
		ORDER BY COUNT(*) DESC, genre ASC
		LIMIT $%d
	`,
		schema.CatalogManga.Table,
		schema.CatalogManga.Genres,
		clause,
		len(args)+1,
	)
	args = append(args, limit)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "top_genres")
	}
	defer rows.Close()

	var counts []GenreCount
	for rows.Next() {
		var gc GenreCount
		if err := rows.Scan(&gc.Genre, &gc.Count); err != nil {
			return nil, dberr.Wrap(err, "scan_genre_count")
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_genre_counts")
	}

	return counts, nil
}

/*
YearHistogram buckets matching manga by publication year, unknown years
included as a nil bucket.
*/
func (repository *statsRepository) YearHistogram(ctx context.Context, f Filter) ([]YearCount, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM %s
		WHERE %s
		GROUP BY %s
		ORDER BY %s ASC NULLS LAST
	`,
		schema.CatalogManga.PublishedYear,
		schema.CatalogManga.Table,
		clause,
		schema.CatalogManga.PublishedYear,
		schema.CatalogManga.PublishedYear,
	)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "year_histogram")
	}
	defer rows.Close()

	var counts []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, dberr.Wrap(err, "scan_year_count")
		}
		counts = append(counts, yc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_year_counts")
	}

	return counts, nil
}

/*
GenreLanguageMatrix ranks (genre, original language) pairs by how many
matching manga carry both.

Description: Unnests the genre array against the language column so each
manga contributes one count per genre it carries, in its own language.
*/
func (repository *statsRepository) GenreLanguageMatrix(ctx context.Context, f Filter, limit int) ([]GenreLanguageCount, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT genre, %s, COUNT(*)
		FROM %s, UNNEST(%s) AS genre
		WHERE %s AND %s <> ''
		GROUP BY genre, %s
		ORDER BY COUNT(*) DESC, genre ASC, %s ASC
		LIMIT $%d
	`,
		schema.CatalogManga.OriginalLanguage,
		schema.CatalogManga.Table,
		schema.CatalogManga.Genres,
		clause,
		schema.CatalogManga.OriginalLanguage,
		schema.CatalogManga.OriginalLanguage,
		schema.CatalogManga.OriginalLanguage,
		len(args)+1,
	)
	args = append(args, limit)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "genre_language_matrix")
	}
	defer rows.Close()

	var counts []GenreLanguageCount
	for rows.Next() {
		var glc GenreLanguageCount
		if err := rows.Scan(&glc.Genre, &glc.Language, &glc.Count); err != nil {
			return nil, dberr.Wrap(err, "scan_genre_language_count")
		}
		counts = append(counts, glc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_genre_language_counts")
	}

	return counts, nil
}

/*
LanguageBreakdown counts matching manga per original language.
*/
func (repository *statsRepository) LanguageBreakdown(ctx context.Context, f Filter) ([]LanguageCount, error) {

	clause, args := f.Clause(0)
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM %s
		WHERE %s AND %s <> ''
		GROUP BY %s
		ORDER BY COUNT(*) DESC
	`,
		schema.CatalogManga.OriginalLanguage,
		schema.CatalogManga.Table,
		clause,
		schema.CatalogManga.OriginalLanguage,
		schema.CatalogManga.OriginalLanguage,
	)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "language_breakdown")
	}
	defer rows.Close()

	var counts []LanguageCount
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, dberr.Wrap(err, "scan_language_count")
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_language_counts")
	}

	return counts, nil
}
