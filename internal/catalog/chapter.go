// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "time"

// Chapter is a release belonging to exactly one [Manga]. For any logical
// chapter number at most one stored row exists per manga; variants in other
// translation languages compete for that slot during reconciliation.
type Chapter struct {
	ID        string    `json:"id"`
	MangaID   string    `json:"manga_id"`
	Number    string    `json:"number"`
	Volume    string    `json:"volume,omitempty"`
	Title     string    `json:"title,omitempty"`
	Lang      string    `json:"lang"`
	Pages     int       `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
}

// ChapterKey identifies the logical chapter slot a stored row occupies.
// Numbers are kept as strings because upstream emits values such as "10.5"
// and "Extra" that do not survive numeric parsing.
type ChapterKey struct {
	MangaID string
	Number  string
}

// Key returns the logical slot this chapter occupies.
func (c Chapter) Key() ChapterKey {
	return ChapterKey{MangaID: c.MangaID, Number: c.Number}
}

// ChapterRef is the persisted projection the reconciler compares feed entries
// against: just enough to decide identity and language preference.
type ChapterRef struct {
	ID   string
	Lang string
}

// ImageSet is the per-chapter image document stored whole in the document
// store. Ordering of the URLs is the page order.
type ImageSet struct {
	ChapterID string   `json:"chapter_id"`
	Images    []string `json:"images"`
}
