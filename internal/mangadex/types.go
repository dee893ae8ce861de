// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mangadex

import (
	"fmt"
	"time"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/pkg/slug"
)

// # Wire Types
//
// These mirror the upstream JSON envelopes. Only the fields the mirror
// consumes are declared; everything else is dropped during decoding.

// mangaListResponse is the envelope of GET /manga.
type mangaListResponse struct {
	Result string      `json:"result"`
	Data   []mangaData `json:"data"`
	Total  int         `json:"total"`
}

// mangaData is one manga record with its relationship sidecar.
type mangaData struct {
	ID            string          `json:"id"`
	Attributes    mangaAttributes `json:"attributes"`
	Relationships []relationship  `json:"relationships"`
}

type mangaAttributes struct {
	Title            map[string]string   `json:"title"`
	AltTitles        []map[string]string `json:"altTitles"`
	Status           string              `json:"status"`
	Year             *int                `json:"year"`
	Tags             []tagData           `json:"tags"`
	OriginalLanguage string              `json:"originalLanguage"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

type tagData struct {
	Attributes tagAttributes `json:"attributes"`
}

type tagAttributes struct {
	Name  map[string]string `json:"name"`
	Group string            `json:"group"`
}

// relationship carries typed references; only cover_art attributes are kept.
type relationship struct {
	Type       string              `json:"type"`
	Attributes *coverArtAttributes `json:"attributes,omitempty"`
}

type coverArtAttributes struct {
	FileName string `json:"fileName"`
}

// chapterFeedResponse is the envelope of GET /manga/{id}/feed.
type chapterFeedResponse struct {
	Result string        `json:"result"`
	Data   []chapterData `json:"data"`
	Total  int           `json:"total"`
}

type chapterData struct {
	ID         string            `json:"id"`
	Attributes chapterAttributes `json:"attributes"`
}

type chapterAttributes struct {
	Chapter            string    `json:"chapter"`
	Volume             string    `json:"volume"`
	Title              string    `json:"title"`
	TranslatedLanguage string    `json:"translatedLanguage"`
	Pages              int       `json:"pages"`
	CreatedAt          time.Time `json:"createdAt"`
}

// atHomeResponse is the envelope of GET /at-home/server/{chapterId}.
type atHomeResponse struct {
	Result  string `json:"result"`
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}

// coverBaseURL hosts cover art files, addressed by manga id and file name.
const coverBaseURL = "https://uploads.mangadex.org/covers"

// # Mapping

// preferredTitle extracts a display string from a multilingual map, favouring
// English and falling back to any available language.
func preferredTitle(titles map[string]string) string {
	if t, ok := titles["en"]; ok && t != "" {
		return t
	}
	for _, t := range titles {
		if t != "" {
			return t
		}
	}
	return ""
}

// toManga maps a wire record onto the domain entity.
func (d mangaData) toManga() catalog.Manga {
	attrs := d.Attributes

	title := preferredTitle(attrs.Title)

	var altTitle string
	for _, alt := range attrs.AltTitles {
		if altTitle = preferredTitle(alt); altTitle != "" {
			break
		}
	}

	// Only genre-group tags become genres; themes and formats are noise for
	// the catalogue's filters.
	var genres []string
	for _, tag := range attrs.Tags {
		if tag.Attributes.Group != "genre" {
			continue
		}
		if name := preferredTitle(tag.Attributes.Name); name != "" {
			genres = append(genres, name)
		}
	}

	var coverURL string
	for _, rel := range d.Relationships {
		if rel.Type == "cover_art" && rel.Attributes != nil && rel.Attributes.FileName != "" {
			coverURL = fmt.Sprintf("%s/%s/%s", coverBaseURL, d.ID, rel.Attributes.FileName)
			break
		}
	}

	return catalog.Manga{
		ID:               d.ID,
		Title:            title,
		AltTitle:         altTitle,
		Slug:             slug.From(title),
		Status:           catalog.NormalizeStatus(attrs.Status),
		PublishedYear:    attrs.Year,
		Genres:           genres,
		OriginalLanguage: attrs.OriginalLanguage,
		CoverURL:         coverURL,
		CreatedAt:        attrs.CreatedAt,
		UpdatedAt:        attrs.UpdatedAt,
	}
}

// toChapter maps a feed entry onto the domain sub-entity.
func (d chapterData) toChapter(mangaID string) catalog.Chapter {
	attrs := d.Attributes
	return catalog.Chapter{
		ID:        d.ID,
		MangaID:   mangaID,
		Number:    attrs.Chapter,
		Volume:    attrs.Volume,
		Title:     attrs.Title,
		Lang:      attrs.TranslatedLanguage,
		Pages:     attrs.Pages,
		CreatedAt: attrs.CreatedAt,
	}
}
