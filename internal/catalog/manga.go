// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog defines the core domain entities for the Torikomi mirror.

It models the mirrored publication catalogue (manga, their chapters, and the
per-chapter image documents) and owns the reconciliation policy that decides,
for every freshly crawled record, whether it is new, changed, unchanged, or
superseded by a preferred-language variant.

Core Responsibility:

  - Catalogue: statuses (Ongoing, Completed, ...) and upstream identity.
  - Reconciliation: delta classification bounding write volume to true changes.
  - Storage: PostgreSQL stores for structured rows, Redis for image documents.

This package acts as the source of truth for all content-related data models.
*/
package catalog

import "time"

// # Domain Enums

// Status represents the publication status of a manga.
type Status string

const (
	// StatusOngoing indicates the publication is actively updating.
	StatusOngoing Status = "ongoing"

	// StatusCompleted indicates no further chapters are expected.
	StatusCompleted Status = "completed"

	// StatusHiatus indicates the publication is paused indefinitely.
	StatusHiatus Status = "hiatus"

	// StatusCancelled indicates the publication has been permanently discontinued.
	StatusCancelled Status = "cancelled"

	// StatusUnknown is the default when status information is unavailable.
	StatusUnknown Status = "unknown"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case
		StatusOngoing,
		StatusCompleted,
		StatusHiatus,
		StatusCancelled,
		StatusUnknown:
		return true
	}
	return false
}

// NormalizeStatus maps an arbitrary upstream status string onto a recognised
// [Status], falling back to [StatusUnknown] for anything unexpected.
func NormalizeStatus(raw string) Status {
	s := Status(raw)
	if s.IsValid() {
		return s
	}
	return StatusUnknown
}

// # Core Entities

// Manga is the top-level catalogued entity, identified by the source-assigned
// id. It is created on first sighting during a crawl and mutated only when
// upstream state advances; the core never deletes it.
type Manga struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	AltTitle         string    `json:"alt_title,omitempty"`
	Slug             string    `json:"slug"`
	Status           Status    `json:"status"`
	PublishedYear    *int      `json:"published_year,omitempty"`
	Genres           []string  `json:"genres,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	CoverURL         string    `json:"cover_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"` // upstream-sourced, not local clock
	UpdatedAt        time.Time `json:"updated_at"` // upstream-sourced, not local clock
}

// MangaState is the minimal persisted projection the reconciler compares a
// crawled record against. Loading full rows for the whole catalogue on every
// cycle would be wasteful; these three fields decide the delta.
type MangaState struct {
	Status    Status
	UpdatedAt time.Time
	Genres    []string
}
