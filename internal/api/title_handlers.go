package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// TitleHandler exposes titles that are already stored. It never calls the
// catalog.
type TitleHandler struct {
	responder
	titles store.TitleStore
}

func NewTitleHandler(titles store.TitleStore, l *slog.Logger) *TitleHandler {
	return &TitleHandler{responder: responder{logger: l}, titles: titles}
}

type titleListResponse struct {
	Titles     []*domain.Title `json:"titles"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// GetTitles lists stored titles with filtering, sorting and pagination.
func (h *TitleHandler) GetTitles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queryParams := r.URL.Query()
	h.logger.InfoContext(ctx, "GetTitles endpoint hit", slog.String("query", queryParams.Encode()))

	page, limit := pageParams(r, "limit", 10)
	params := store.TitleListParams{
		Page:        page,
		PageSize:    limit,
		Genre:       queryParams.Get("genre"),
		Year:        queryParams.Get("year"),
		SearchQuery: queryParams.Get("search"),
		SortBy:      queryParams.Get("sort_by"),
	}
	if raw := queryParams.Get("kind"); raw != "" {
		kind, ok := domain.ParseKind(raw)
		if !ok {
			h.respondError(w, r, http.StatusBadRequest, "kind must be movie or series")
			return
		}
		params.Kind = kind
	}

	titles, totalCount, err := h.titles.List(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list titles from store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve titles")
		return
	}
	h.logger.InfoContext(ctx, "Titles list retrieved successfully", slog.Int("count_returned", len(titles)), slog.Int("total_available", totalCount))
	h.respondJSON(w, r, http.StatusOK, titleListResponse{Titles: titles, TotalCount: totalCount, Page: page, PageSize: limit})
}

// GetTitleByID returns one stored title; series carry their seasons.
func (h *TitleHandler) GetTitleByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleID := mux.Vars(r)["titleId"]
	h.logger.InfoContext(ctx, "GetTitleByID endpoint hit", slog.String("titleID", titleID))

	if _, err := uuid.Parse(titleID); err != nil {
		h.respondError(w, r, http.StatusNotFound, "Title not found")
		return
	}
	title, err := h.titles.GetByID(ctx, titleID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, title)
}
