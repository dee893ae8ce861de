// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/torikomi/internal/platform/database/schema"
)

// # Read-Side Filters

// YearRange bounds the publication year dimension. IncludeNull keeps rows
// whose year is unknown, which would otherwise vanish from every range.
type YearRange struct {
	Min         int
	Max         int
	IncludeNull bool
}

// Filter is the tagged filter set for catalogue queries. Each dimension is an
// explicit field rather than a key-value bag so the clause builder can be
// exhaustive over all of them. A zero Filter matches everything.
type Filter struct {
	Statuses  []Status
	Years     *YearRange
	Genres    []string
	Languages []string
}

/*
Clause renders the filter as a SQL WHERE fragment.

Description: Placeholders are numbered starting at argOffset+1 so the caller
can prepend its own arguments. A filter with no active dimension renders to
"TRUE" so callers can splice it unconditionally.

Parameters:
  - argOffset: Number of placeholders the caller already consumed.

Returns:
  - string: The WHERE fragment, without the WHERE keyword.
  - []any: Arguments matching the fragment's placeholders in order.
*/
func (f Filter) Clause(argOffset int) (string, []any) {

	var conditions []string
	var args []any
	next := func() int {
		argOffset++
		return argOffset
	}

	// Status dimension
	if len(f.Statuses) > 0 {
		conditions = append(conditions,
			fmt.Sprintf("%s = ANY($%d)", schema.CatalogManga.Status, next()))
		args = append(args, statusStrings(f.Statuses))
	}

	// Year dimension, with the explicit null carve-out
	if f.Years != nil {
		rangeCond := fmt.Sprintf("%s BETWEEN $%d AND $%d",
			schema.CatalogManga.PublishedYear, next(), next())
		args = append(args, f.Years.Min, f.Years.Max)
		if f.Years.IncludeNull {
			rangeCond = fmt.Sprintf("(%s OR %s IS NULL)",
				rangeCond, schema.CatalogManga.PublishedYear)
		}
		conditions = append(conditions, rangeCond)
	}

	// Genre dimension, any-overlap semantics
	if len(f.Genres) > 0 {
		conditions = append(conditions,
			fmt.Sprintf("%s && $%d", schema.CatalogManga.Genres, next()))
		args = append(args, f.Genres)
	}

	// Language dimension
	if len(f.Languages) > 0 {
		conditions = append(conditions,
			fmt.Sprintf("%s = ANY($%d)", schema.CatalogManga.OriginalLanguage, next()))
		args = append(args, f.Languages)
	}

	if len(conditions) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conditions, " AND "), args
}

// statusStrings converts the typed status set for driver encoding.
func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// # Aggregate Results

// StatusCount is one row of the status overview.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// GenreCount is one row of the genre ranking.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// YearCount is one bucket of the publication year histogram. Year is nil for
// the unknown-year bucket.
type YearCount struct {
	Year  *int `json:"year"`
	Count int  `json:"count"`
}

// LanguageCount is one row of the original language breakdown.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// GenreLanguageCount is one cell of the genre by original-language matrix.
type GenreLanguageCount struct {
	Genre    string `json:"genre"`
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// # Query Contract

// StatsRepository serves the read-only catalogue queries consumed by the API.
// All queries honour the same [Filter] so every view of the catalogue can be
// narrowed along the same dimensions.
type StatsRepository interface {
	// ListManga returns a filtered, paginated slice of manga and the total count.
	ListManga(ctx context.Context, f Filter, limit, offset int) ([]Manga, int, error)

	// FindManga returns the manga with the given id.
	//
	// It returns apperr.NotFound if the manga is absent.
	FindManga(ctx context.Context, id string) (*Manga, error)

	// ListChapters returns all chapters of a manga ordered by number.
	ListChapters(ctx context.Context, mangaID string) ([]Chapter, error)

	// StatusOverview counts manga per status.
	StatusOverview(ctx context.Context, f Filter) ([]StatusCount, error)

	// TopGenres ranks genres by how many matching manga carry them.
	TopGenres(ctx context.Context, f Filter, limit int) ([]GenreCount, error)

	// YearHistogram buckets matching manga by publication year.
	YearHistogram(ctx context.Context, f Filter) ([]YearCount, error)

	// LanguageBreakdown counts matching manga per original language.
	LanguageBreakdown(ctx context.Context, f Filter) ([]LanguageCount, error)

	// GenreLanguageMatrix ranks (genre, original language) pairs by how many
	// matching manga carry both.
	GenreLanguageMatrix(ctx context.Context, f Filter, limit int) ([]GenreLanguageCount, error)
}
