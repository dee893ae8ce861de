// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/torikomi/internal/platform/respond"
	"github.com/taibuivan/torikomi/pkg/pagination"
	"github.com/taibuivan/torikomi/pkg/query"
)

// Handler exposes the read-only catalogue over HTTP. The mirror is written
// exclusively by the ingestion worker, so every route here is a GET.
type Handler struct {
	stats  StatsRepository
	images *RedisImageStore
}

// NewHandler constructs the catalogue HTTP handler.
func NewHandler(stats StatsRepository, images *RedisImageStore) *Handler {
	return &Handler{stats: stats, images: images}
}

// RegisterRoutes mounts the catalogue routes onto the router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/manga", handler.listManga)
	router.Get("/manga/{id}", handler.getManga)
	router.Get("/manga/{id}/chapters", handler.listChapters)
	router.Get("/chapters/{id}/images", handler.getChapterImages)
	router.Get("/stats/status", handler.statusOverview)
	router.Get("/stats/genres", handler.topGenres)
	router.Get("/stats/years", handler.yearHistogram)
	router.Get("/stats/languages", handler.languageBreakdown)
	router.Get("/stats/genre-languages", handler.genreLanguageMatrix)
}

// filterFromRequest parses the tagged filter dimensions from query parameters.
//
// Supported parameters: status, genre, lang (comma-separated sets), and
// year_min/year_max/year_null for the range dimension.
func filterFromRequest(request *http.Request) Filter {
	values := request.URL.Query()

	var f Filter
	for _, raw := range query.StringSlice(values.Get("status")) {
		f.Statuses = append(f.Statuses, NormalizeStatus(raw))
	}
	f.Genres = query.StringSlice(values.Get("genre"))
	f.Languages = query.StringSlice(values.Get("lang"))

	yearMin, hasMin := query.Int(values.Get("year_min"))
	yearMax, hasMax := query.Int(values.Get("year_max"))
	if hasMin || hasMax {
		if !hasMax {
			yearMax = 9999
		}
		f.Years = &YearRange{
			Min:         yearMin,
			Max:         yearMax,
			IncludeNull: query.Bool(values.Get("year_null"), false),
		}
	}

	return f
}

func (handler *Handler) listManga(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	filter := filterFromRequest(request)

	mangas, total, err := handler.stats.ListManga(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, mangas, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) getManga(writer http.ResponseWriter, request *http.Request) {
	manga, err := handler.stats.FindManga(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, manga)
}

func (handler *Handler) listChapters(writer http.ResponseWriter, request *http.Request) {
	chapters, err := handler.stats.ListChapters(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, chapters)
}

func (handler *Handler) getChapterImages(writer http.ResponseWriter, request *http.Request) {
	set, err := handler.images.Get(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, set)
}

func (handler *Handler) statusOverview(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.stats.StatusOverview(request.Context(), filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}

// limitParam reads the limit query parameter, clamped to 1..50.
func limitParam(request *http.Request, fallback int) int {
	if n, ok := query.Int(request.URL.Query().Get("limit")); ok && n > 0 && n <= 50 {
		return n
	}
	return fallback
}

func (handler *Handler) topGenres(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.stats.TopGenres(request.Context(), filterFromRequest(request), limitParam(request, 10))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}

func (handler *Handler) yearHistogram(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.stats.YearHistogram(request.Context(), filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}

func (handler *Handler) languageBreakdown(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.stats.LanguageBreakdown(request.Context(), filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}

func (handler *Handler) genreLanguageMatrix(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.stats.GenreLanguageMatrix(request.Context(), filterFromRequest(request), limitParam(request, 20))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}
