// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/torikomi/internal/catalog"
)

/*
TestFilter_Clause_Empty tests that a zero filter matches everything.
*/
func TestFilter_Clause_Empty(t *testing.T) {
	clause, args := catalog.Filter{}.Clause(0)

	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)
}

/*
TestFilter_Clause_StatusSet tests the status dimension.
*/
func TestFilter_Clause_StatusSet(t *testing.T) {
	f := catalog.Filter{
		Statuses: []catalog.Status{catalog.StatusOngoing, catalog.StatusHiatus},
	}

	clause, args := f.Clause(0)

	assert.Equal(t, "status = ANY($1)", clause)
	require.Len(t, args, 1)
	assert.Equal(t, []string{"ongoing", "hiatus"}, args[0])
}

/*
TestFilter_Clause_YearRange tests the range dimension with and without the
unknown-year carve-out.
*/
func TestFilter_Clause_YearRange(t *testing.T) {
	f := catalog.Filter{
		Years: &catalog.YearRange{Min: 2000, Max: 2010},
	}
	clause, args := f.Clause(0)
	assert.Equal(t, "publishedyear BETWEEN $1 AND $2", clause)
	assert.Equal(t, []any{2000, 2010}, args)

	f.Years.IncludeNull = true
	clause, args = f.Clause(0)
	assert.Equal(t, "(publishedyear BETWEEN $1 AND $2 OR publishedyear IS NULL)", clause)
	assert.Equal(t, []any{2000, 2010}, args)
}

/*
TestFilter_Clause_AllDimensions tests that every dimension renders and the
placeholder numbering stays continuous across them.
*/
func TestFilter_Clause_AllDimensions(t *testing.T) {
	f := catalog.Filter{
		Statuses:  []catalog.Status{catalog.StatusCompleted},
		Years:     &catalog.YearRange{Min: 1990, Max: 1999, IncludeNull: true},
		Genres:    []string{"action", "drama"},
		Languages: []string{"ja"},
	}

	clause, args := f.Clause(0)

	assert.Equal(t,
		"status = ANY($1) AND (publishedyear BETWEEN $2 AND $3 OR publishedyear IS NULL)"+
			" AND genres && $4 AND originallanguage = ANY($5)",
		clause)
	require.Len(t, args, 5)
}

/*
TestFilter_Clause_ArgOffset tests caller-owned placeholders are respected.
*/
func TestFilter_Clause_ArgOffset(t *testing.T) {
	f := catalog.Filter{Genres: []string{"comedy"}}

	clause, args := f.Clause(3)

	assert.Equal(t, "genres && $4", clause)
	require.Len(t, args, 1)
}
